package ses

import (
	"time"

	"github.com/shineum/sesnotify/internal/notify"
)

// Parameter keys for the flat view of Options.
var (
	ParamAccessKey          = Name + "_AccessKey"
	ParamSecretKey          = Name + "_SecretKey"
	ParamRegionEndpoint     = Name + "_RegionEndpoint"
	ParamDefaultFromAddress = Name + "_DefaultFromAddress"
)

// Options configures the SES provider. Nothing is validated up front:
// bad credentials only show up when a message is sent.
type Options struct {
	// AccessKey and SecretKey are the AWS access key pair. When either is
	// empty the default AWS credential chain is used.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// Region is the AWS region name, e.g. "eu-west-1". Unknown names fall
	// back to FallbackRegion.
	Region string `yaml:"region"`

	// DefaultFromAddress is used when a message has no from-address.
	DefaultFromAddress string `yaml:"default_from_address"`

	// Timeout bounds a single SES call. Zero leaves the deadline to the caller.
	Timeout time.Duration `yaml:"timeout"`
}

// Parameters returns the namespaced flat view of o. All four keys are
// always present.
func (o Options) Parameters() notify.Parameters {
	return notify.Parameters{
		ParamAccessKey:          o.AccessKey,
		ParamSecretKey:          o.SecretKey,
		ParamRegionEndpoint:     o.Region,
		ParamDefaultFromAddress: o.DefaultFromAddress,
	}
}

// OptionsFromParameters reads Options from their flat view.
func OptionsFromParameters(params notify.Parameters) Options {
	return Options{
		AccessKey:          params.Get(ParamAccessKey),
		SecretKey:          params.Get(ParamSecretKey),
		Region:             params.Get(ParamRegionEndpoint),
		DefaultFromAddress: params.Get(ParamDefaultFromAddress),
	}
}

// StaticCredentials reports whether both keys are set, in which case they
// replace the default AWS credential chain.
func (o Options) StaticCredentials() bool {
	return o.AccessKey != "" && o.SecretKey != ""
}
