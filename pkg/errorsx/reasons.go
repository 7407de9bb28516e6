package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonConfigRead    ReasonCode = "config_read"
	ReasonConfigDecode  ReasonCode = "config_decode"
	ReasonConfigInvalid ReasonCode = "config_invalid"

	ReasonSinkUnknown  ReasonCode = "sink_unknown"
	ReasonSinkSettings ReasonCode = "sink_settings"
	ReasonSinkOpen     ReasonCode = "sink_open"

	ReasonComponentMissing   ReasonCode = "component_missing"
	ReasonComponentDuplicate ReasonCode = "component_duplicate"
	ReasonComponentInit      ReasonCode = "component_init"
	ReasonComponentHook      ReasonCode = "component_hook"

	ReasonDataSourceConfig ReasonCode = "datasource_config"
	ReasonDataSourceOpen   ReasonCode = "datasource_open"
)
