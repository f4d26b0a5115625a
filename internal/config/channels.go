package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Channel is a subscription requirement shown to users and checked by the access gate.
type Channel struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
}

// Handle returns the username in "@name" form.
func (c Channel) Handle() string {
	return "@" + strings.TrimPrefix(strings.TrimSpace(c.Username), "@")
}

// URL returns the public t.me link of the channel.
func (c Channel) URL() string {
	return "https://t.me/" + strings.TrimPrefix(c.Handle(), "@")
}

func DefaultChannels() []Channel {
	return []Channel{
		{Name: "Kanal", Username: "@Foydali_botlar_uzbek"},
		{Name: "Kanal", Username: "@kinolar_ozbek_tili"},
		{Name: "Kanal", Username: "@shablonlarii"},
	}
}

type channelsFile struct {
	Channels []Channel `yaml:"channels"`
}

// LoadChannels parses a YAML file of the form:
//
//	channels:
//	  - name: News
//	    username: "@news"
func LoadChannels(path string) ([]Channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}
	var f channelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse channels file: %w", err)
	}
	for i, ch := range f.Channels {
		if strings.TrimPrefix(strings.TrimSpace(ch.Username), "@") == "" {
			return nil, fmt.Errorf("channels[%d]: empty username", i)
		}
		if ch.Name == "" {
			f.Channels[i].Name = ch.Handle()
		}
	}
	return f.Channels, nil
}
