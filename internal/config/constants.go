package config

// Management server and node agent defaults.
const (
	DefaultManagerPort      = 7180
	DefaultAPIVersion       = "v14"
	DefaultUsername         = "admin"
	DefaultPassword         = "admin"
	DefaultClusterName      = "cluster"
	DefaultDomain           = "cluster"
	DefaultAgentConfigPath  = "/etc/cloudera-scm-agent/config.ini"
	DefaultParcelProduct    = "CDH"
	DefaultDatabasePort     = 7432
	DefaultStaleStateGroup  = "secondary"
	DefaultSSHPort          = 22
	DefaultSSHUser          = "root"
	DefaultAgentRestart     = "service cloudera-scm-agent restart"
	DefaultServiceStartVerb = "start"
)

// Transport types.
const (
	TransportNone   = "none"
	TransportDocker = "docker"
	TransportSSH    = "ssh"
)

// Node selectors accepted by node commands in addition to group names.
const (
	NodesAll       = "all"
	NodesPrimary   = "primary-node"
	NodesSecondary = "secondary-nodes"
)

// Node command stages.
const (
	StagePrepare = "prepare"
	StagePost    = "post"
)

// Environment variables holding secrets.
const (
	EnvManagerPassword = "BRINGUP_MANAGER_PASSWORD"
	EnvS3Endpoint      = "BRINGUP_S3_ENDPOINT"
	EnvS3Region        = "BRINGUP_S3_REGION"
	EnvS3AccessKey     = "BRINGUP_S3_ACCESS_KEY"
	EnvS3SecretKey     = "BRINGUP_S3_SECRET_KEY"
)

// DefaultFilesystemWhitelist are the filesystems the node agent must accept
// inside containers.
var DefaultFilesystemWhitelist = []string{"aufs", "overlay"}

// DefaultStalePaths are removed from cloned secondary nodes so that they do
// not heartbeat with the identity of the node they were cloned from.
var DefaultStalePaths = []string{"/var/lib/cloudera-scm-agent/uuid", "/dfs*/dn/current/*"}

// DefaultServiceOrder is the start order used when none is configured.
var DefaultServiceOrder = []string{
	"zookeeper", "hdfs", "yarn", "hbase", "flume", "spark_on_yarn", "sqoop", "hive", "oozie", "hue",
}
