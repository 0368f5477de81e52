package credentials

import (
	"encoding/json"
	"fmt"
)

// registryBundle is one entry of a VCAP_SERVICES array.
type registryBundle struct {
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Plan        string         `json:"plan"`
	Credentials map[string]any `json:"credentials"`
}

// parseRegistry decodes a VCAP_SERVICES blob.
func parseRegistry(blob string) (map[string][]registryBundle, error) {
	var services map[string][]registryBundle
	if err := json.Unmarshal([]byte(blob), &services); err != nil {
		return nil, fmt.Errorf("parse %s: %w", EnvServiceRegistry, err)
	}
	return services, nil
}

// lookupRegistry finds the bundle for serviceName: the first entry listed
// under that key, otherwise the first bundle whose name matches.
func lookupRegistry(services map[string][]registryBundle, serviceName string) (fields, bool) {
	if bundles, ok := services[serviceName]; ok && len(bundles) > 0 {
		return bundles[0].fields(), true
	}
	for _, bundles := range services {
		for _, b := range bundles {
			if b.Name == serviceName {
				return b.fields(), true
			}
		}
	}
	return fields{}, false
}

func (b registryBundle) fields() fields {
	str := func(key string) string {
		if v, ok := b.Credentials[key].(string); ok {
			return v
		}
		return ""
	}
	return fields{
		Username:  str("username"),
		Password:  str("password"),
		URL:       str("url"),
		APIKey:    str("apikey"),
		IAMAPIKey: str("iam_apikey"),
		IAMURL:    str("iam_url"),
	}
}
