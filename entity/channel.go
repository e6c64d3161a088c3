package entity

// Channel describes a data stream or metadata field present on experiment records.
type Channel struct {
	Name     string `json:"name" yaml:"name"`                         // system name
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`   // friendly name
	Kind     string `json:"type,omitempty" yaml:"type,omitempty"`     // scalar, image, waveform
	Units    string `json:"units,omitempty" yaml:"units,omitempty"`
	Metadata bool   `json:"metadata,omitempty" yaml:"metadata,omitempty"` // built-in record metadata
}

// Display returns the friendly name, or the system name when there is none.
func (ch Channel) Display() string {
	if ch.Label != "" {
		return ch.Label
	}
	return ch.Name
}

// Path returns the dotted record path for the channel.
func (ch Channel) Path() string {
	return RecordPath(ch.Name, ch.Metadata)
}

// RecordPath builds a dotted record path.
func RecordPath(name string, metadata bool) string {
	if metadata {
		return "metadata." + name
	}
	return "channels." + name + ".data"
}

// MetadataChannels are the built-in system fields of every record.
var MetadataChannels = []Channel{
	{Name: "shotnum", Label: "Shot Number", Kind: "scalar", Metadata: true},
	{Name: "timestamp", Label: "Time", Kind: "scalar", Metadata: true},
	{Name: "activeArea", Label: "Active Area", Kind: "scalar", Metadata: true},
	{Name: "activeExperiment", Label: "Active Experiment", Kind: "scalar", Metadata: true},
}

// IsMetadata reports whether name is a built-in system field.
func IsMetadata(name string) bool {
	for _, ch := range MetadataChannels {
		if ch.Name == name {
			return true
		}
	}
	return false
}
