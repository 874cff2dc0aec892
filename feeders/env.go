package feeders

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// ErrEnvInvalidStructure indicates that the provided structure is not valid for environment variable processing
var ErrEnvInvalidStructure = errors.New("env: invalid structure")

// ErrEnvFieldNotSettable indicates a tagged field cannot be written through reflection
var ErrEnvFieldNotSettable = errors.New("env: field cannot be set")

var durationType = reflect.TypeOf(time.Duration(0))

// EnvFeeder is a feeder that reads environment variables named by `env` struct
// tags, optionally prefixed. A tag of `env:"ACCESS_KEY"` with prefix DUIHOST
// reads DUIHOST_ACCESS_KEY.
type EnvFeeder struct {
	Prefix string
	lookup func(string) (string, bool)
}

// NewEnvFeeder creates a new EnvFeeder reading the process environment
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix, lookup: os.LookupEnv}
}

// NewEnvFeederFromMap creates an EnvFeeder reading from a fixed map instead of
// the process environment.
func NewEnvFeederFromMap(prefix string, env map[string]string) EnvFeeder {
	return EnvFeeder{Prefix: prefix, lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}
}

// Feed reads environment variables and populates the provided structure
func (f EnvFeeder) Feed(structure interface{}) error {
	inputType := reflect.TypeOf(structure)
	if inputType == nil || inputType.Kind() != reflect.Ptr || inputType.Elem().Kind() != reflect.Struct {
		return ErrEnvInvalidStructure
	}
	if f.lookup == nil {
		f.lookup = os.LookupEnv
	}
	return f.processStructFields(reflect.ValueOf(structure).Elem())
}

// processStructFields iterates through struct fields
func (f EnvFeeder) processStructFields(rv reflect.Value) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		if !fieldType.IsExported() {
			continue
		}

		if err := f.processField(field, &fieldType); err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

// processField handles a single struct field
func (f EnvFeeder) processField(field reflect.Value, fieldType *reflect.StructField) error {
	envTag, hasTag := fieldType.Tag.Lookup("env")

	switch field.Kind() {
	case reflect.Struct:
		if !hasTag {
			return f.processStructFields(field)
		}
	case reflect.Pointer:
		if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
			return f.processStructFields(field.Elem())
		}
	}

	if !hasTag || envTag == "" || envTag == "-" {
		return nil
	}
	return f.setFieldFromEnv(field, envTag)
}

// setFieldFromEnv sets a field value from an environment variable
func (f EnvFeeder) setFieldFromEnv(field reflect.Value, envTag string) error {
	envName := strings.ToUpper(envTag)
	if f.Prefix != "" {
		envName = strings.ToUpper(f.Prefix) + "_" + envName
	}

	if envValue, ok := f.lookup(envName); ok && envValue != "" {
		return setFieldValue(field, envValue)
	}
	return nil
}

// setFieldValue converts and sets a field value
func setFieldValue(field reflect.Value, strValue string) error {
	if !field.CanSet() {
		return ErrEnvFieldNotSettable
	}

	if field.Kind() == reflect.Slice {
		parts := strings.Split(strValue, ",")
		slice := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			elem, err := convertScalar(part, field.Type().Elem())
			if err != nil {
				return err
			}
			slice = reflect.Append(slice, elem)
		}
		field.Set(slice)
		return nil
	}

	value, err := convertScalar(strValue, field.Type())
	if err != nil {
		return err
	}
	field.Set(value)
	return nil
}

func convertScalar(strValue string, t reflect.Type) (reflect.Value, error) {
	if t == durationType {
		d, err := time.ParseDuration(strValue)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert value to type %v: %w", t, err)
		}
		return reflect.ValueOf(d), nil
	}

	convertedValue, err := cast.FromType(strValue, t)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("cannot convert value to type %v: %w", t, err)
	}
	v := reflect.ValueOf(convertedValue)
	if !v.Type().ConvertibleTo(t) {
		return reflect.Value{}, fmt.Errorf("cannot convert value to type %v", t)
	}
	return v.Convert(t), nil
}
