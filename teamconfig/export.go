package teamconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/agentteams/types"
)

// ExportMetadata is attached to exported configurations on request.
type ExportMetadata struct {
	ExportedAt        time.Time `json:"exported_at" yaml:"exported_at"`
	TeamID            string    `json:"team_id" yaml:"team_id"`
	TeamName          string    `json:"team_name" yaml:"team_name"`
	OriginalCreatedAt time.Time `json:"original_created_at" yaml:"original_created_at"`
}

// Export renders a team configuration as json or yaml and returns the
// content with a suggested filename. A nil meta exports the bare config.
func Export(teamID string, data map[string]any, format string, meta *ExportMetadata) (string, string, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return "", "", types.NewError(types.ErrUnsupportedFormat,
			fmt.Sprintf("unsupported export format %q: use json or yaml", format))
	}

	switch f {
	case FormatJSON:
		var payload any = data
		if meta != nil {
			payload = map[string]any{
				"metadata":      meta,
				"configuration": data,
			}
		}
		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", "", types.NewInternalError("failed to encode configuration", err)
		}
		return string(out), teamID + "_config.json", nil

	default:
		var buf bytes.Buffer
		if meta != nil {
			fmt.Fprintf(&buf, "# Exported configuration\n")
			fmt.Fprintf(&buf, "# Team: %s (%s)\n", meta.TeamName, meta.TeamID)
			fmt.Fprintf(&buf, "# Exported at: %s\n", meta.ExportedAt.UTC().Format(time.RFC3339))
			fmt.Fprintf(&buf, "# Originally created: %s\n\n", meta.OriginalCreatedAt.UTC().Format(time.RFC3339))
		}
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return "", "", types.NewInternalError("failed to encode configuration", err)
		}
		if err := enc.Close(); err != nil {
			return "", "", types.NewInternalError("failed to encode configuration", err)
		}
		return buf.String(), teamID + "_config.yml", nil
	}
}
