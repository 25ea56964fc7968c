package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns a documented config file for format "toml" or "yaml".
// Every value in it equals the built-in default.
func Template(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "toml":
		return tomlTemplate, nil
	case "yaml", "yml":
		return yamlTemplate, nil
	default:
		return "", fmt.Errorf("unknown config format: %s", format)
	}
}

func WriteTemplate(path, format string, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const tomlTemplate = `# clamp keeps the first entries of an oversized list and warns;
# reject fails the run instead.
clamp_policy = "clamp"

[limits]
session_id_bytes = 8
root_certificate_ids = 20
issuer_name_chars = 81
serial_number_octets = 8
sub_certificates = 3
certificate_bytes = 1600
emaids = 8
emaid_chars = 256

[input]
initial_size = 4096
max_size = 8388608

[output]
capacity = 16384
v2gtp = false
v2gtp_payload_type = 0x8001

[metrics]
textfile = ""
`

const yamlTemplate = `# clamp keeps the first entries of an oversized list and warns;
# reject fails the run instead.
clamp_policy: clamp

limits:
  session_id_bytes: 8
  root_certificate_ids: 20
  issuer_name_chars: 81
  serial_number_octets: 8
  sub_certificates: 3
  certificate_bytes: 1600
  emaids: 8
  emaid_chars: 256

input:
  initial_size: 4096
  max_size: 8388608

output:
  capacity: 16384
  v2gtp: false
  v2gtp_payload_type: 32769

metrics:
  textfile: ""
`
