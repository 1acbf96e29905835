package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Pipeline names accepted in ENABLED_PIPELINES.
const (
	PipelineEnzymes  = "enzymes"
	PipelineChEMBL   = "chembl"
	PipelineNP       = "np"
	PipelineNPRepair = "np-repair"
)

var knownPipelines = map[string]bool{
	PipelineEnzymes:  true,
	PipelineChEMBL:   true,
	PipelineNP:       true,
	PipelineNPRepair: true,
}

// Config holds every path and knob of the preparation run, read from the environment.
type Config struct {
	// DrugBank relationship extraction
	DrugBankXMLPath  string `envconfig:"DRUGBANK_XML_PATH" default:"full database.xml"`
	EnzymeOutputPath string `envconfig:"ENZYME_OUTPUT_PATH" default:"drugbank_drug_enzyme_action.csv"`
	CrossRefResource string `envconfig:"CROSSREF_RESOURCE" default:"ChEMBL"`
	SourceTag        string `envconfig:"SOURCE_TAG" default:"drugbank"`

	// Fingerprint generation
	ChEMBLInputPath  string `envconfig:"CHEMBL_INPUT_PATH" default:"chembl_compound_structures_forfinger.csv"`
	ChEMBLOutputPath string `envconfig:"CHEMBL_OUTPUT_PATH" default:"compound_fingerprints_chembl.csv"`
	NPInputPath      string `envconfig:"NP_INPUT_PATH" default:"natural_products_chembl_merged.csv"`
	NPOutputPath     string `envconfig:"NP_OUTPUT_PATH" default:"compound_fingerprints_np.csv"`
	NPRepairedPath   string `envconfig:"NP_REPAIRED_PATH" default:"compound_fingerprints_np_fixed.csv"`

	BatchSize         int  `envconfig:"BATCH_SIZE" default:"2000"`
	FingerprintRadius int  `envconfig:"FINGERPRINT_RADIUS" default:"2"`
	FingerprintBits   int  `envconfig:"FINGERPRINT_BITS" default:"2048"`
	FingerprintCounts bool `envconfig:"FINGERPRINT_COUNTS" default:"false"`

	EnabledPipelines string `envconfig:"ENABLED_PIPELINES" default:"enzymes,chembl,np,np-repair"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Optional relational mirror of every written row
	DBDriver string `envconfig:"DB_DRIVER"`
	DBDSN    string `envconfig:"DB_DSN"`

	// Batch jobs push their metrics instead of being scraped
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
	MetricsJob     string `envconfig:"METRICS_JOB" default:"hdi-prep"`

	// Object storage for cmd/publish
	S3URL        string `envconfig:"S3_URL"`
	S3Region     string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Key        string `envconfig:"S3_KEY"`
	S3Secret     string `envconfig:"S3_SECRET"`
	S3Bucket     string `envconfig:"S3_BUCKET"`
	S3Prefix     string `envconfig:"S3_PREFIX" default:"hdi-prep"`
	KeepVersions int    `envconfig:"KEEP_VERSIONS" default:"4"`
}

// Pipelines returns the enabled pipeline names in configured order.
func (c *Config) Pipelines() []string {
	var out []string
	for _, name := range strings.Split(c.EnabledPipelines, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks the settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.FingerprintBits <= 0 {
		return fmt.Errorf("FINGERPRINT_BITS must be positive, got %d", c.FingerprintBits)
	}
	if c.FingerprintRadius < 0 {
		return fmt.Errorf("FINGERPRINT_RADIUS must not be negative, got %d", c.FingerprintRadius)
	}
	for _, name := range c.Pipelines() {
		if !knownPipelines[name] {
			return fmt.Errorf("unknown pipeline %q in ENABLED_PIPELINES", name)
		}
	}
	switch c.DBDriver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDriver != "" && c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required when DB_DRIVER is set")
	}
	if c.KeepVersions < 1 {
		return fmt.Errorf("KEEP_VERSIONS must be at least 1, got %d", c.KeepVersions)
	}
	return nil
}

// S3Enabled reports whether enough object storage settings are present to publish.
func (c *Config) S3Enabled() bool {
	return c.S3URL != "" && c.S3Bucket != "" && c.S3Key != "" && c.S3Secret != ""
}

// Load loads the configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
