package opgateway

import (
	"github.com/pkg/errors"

	nt "opgateway/entity"
	"opgateway/util"
)

// Session is the state of an exploration, saved to and restored from yaml
type Session struct {
	Source  string      `yaml:"source"`
	Columns []nt.Column `yaml:"columns"`
	Filters []nt.Filter `yaml:"filters"`
	Sorts   []nt.Sort   `yaml:"sorts,omitempty"`
	Plots   []string    `yaml:"plots,omitempty"`
}

// SaveSession writes a session file
func SaveSession(session Session, path string) (err error) {

	err = util.WriteConfig(session, path, 0644)
	err = errors.Wrapf(err, "failed to save session")
	return
}

// LoadSession reads a session file
func LoadSession(path string) (session Session, err error) {

	err = util.LoadConfig(&session, path)
	err = errors.Wrapf(err, "failed to load session")
	return
}
