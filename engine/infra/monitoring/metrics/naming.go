package metrics

import "strings"

const prefix = "mpdriver_"

// MetricName prefixes name with the service namespace unless already present.
func MetricName(name string) string {
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

// MetricNameWithSubsystem builds mpdriver_<subsystem>_<name>.
func MetricNameWithSubsystem(subsystem, name string) string {
	subsystem = strings.Trim(subsystem, "_")
	if name == "" {
		return MetricName(subsystem)
	}
	return MetricName(subsystem + "_" + name)
}
