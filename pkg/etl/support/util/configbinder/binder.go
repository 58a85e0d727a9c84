// Package configbinder binds loosely typed property maps from the
// configuration file onto option structs for steps and components.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties binds a string property map to a target struct.
// The target struct should use `yaml` tags; values are converted weakly,
// so "42" binds to an int field and "true" to a bool field.
func BindProperties(props map[string]string, target interface{}) error {
	if len(props) == 0 {
		return nil
	}

	intermediate := make(map[string]interface{}, len(props))
	for k, v := range props {
		intermediate[k] = v
	}

	config := &mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "yaml",
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(intermediate); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}

	return nil
}
