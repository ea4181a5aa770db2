package module

import (
	"encoding/json"
	"os"

	perr "slipway/internal/platform/errors"
	"slipway/internal/platform/net/http/bind"
	"slipway/internal/services/records/domain"
)

// LoadTemplate reads the default template file and layers the optional flow
// file on top. Decoding the flow file into the already-populated struct
// overrides only the fields it supplies, mirroring a shallow merge
func LoadTemplate(defaultPath, flowPath string) (domain.Template, error) {
	var t domain.Template

	if err := decodeInto(defaultPath, &t); err != nil {
		return t, err
	}
	if flowPath != "" {
		if err := decodeInto(flowPath, &t); err != nil {
			return t, err
		}
	}

	if err := bind.Get().Validator.Struct(t); err != nil {
		field, msg := bind.ValidationFieldAndMessage(err)
		return t, perr.WithField(perr.Configf("template invalid: %s", msg), field)
	}
	return t, nil
}

func decodeInto(path string, t *domain.Template) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return perr.Configf("template %s: %v", path, err)
	}
	if err := json.Unmarshal(raw, t); err != nil {
		return perr.Configf("template %s: %v", path, err)
	}
	return nil
}
