// Package config fills configuration structs from environment variables.
//
// Fields are bound with `env:"NAME"` and may carry `default:"value"`. Nested
// structs are walked recursively; `envPrefix:"PREFIX_"` on a struct field is
// prepended to the names of everything inside it. Every name is looked up
// under the namespace passed to Parse and then under each shorter namespace:
// for namespace "ACCOUNTS_ACCOUNTSVC" and name "HTTP_SERVER_ADDR" the
// candidates are ACCOUNTS_ACCOUNTSVC_HTTP_SERVER_ADDR,
// ACCOUNTS_HTTP_SERVER_ADDR and HTTP_SERVER_ADDR, in that order.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidConfig is returned when the config is not a pointer to a struct embedding EnvConfig.
	ErrInvalidConfig = errors.New("config must be a pointer to a struct embedding EnvConfig")

	// ErrVarNotSet is returned when a variable without default is not set.
	ErrVarNotSet = errors.New("env var not set")

	// ErrUnsupportedVarType is returned for fields of a kind Parse cannot fill.
	ErrUnsupportedVarType = errors.New("unsupported env var type")
)

//nolint:gochecknoglobals
var (
	envConfigType = reflect.TypeFor[EnvConfig]()
	durationType  = reflect.TypeFor[time.Duration]()
)

// EnvConfig marks a struct as a root configuration and records its namespace.
type EnvConfig struct {
	namespace string
}

// Namespace returns the namespace the config was parsed with.
func (c EnvConfig) Namespace() string {
	return c.namespace
}

// Parse fills cfg from the environment. cfg must be a pointer to a struct
// embedding EnvConfig. Supported field types are string, signed integers,
// bool and time.Duration.
func Parse(_ context.Context, cfg any, namespace string) error {
	root, err := envConfigOf(cfg)
	if err != nil {
		return fmt.Errorf("get env config: %w", err)
	}

	root.namespace = namespace

	p := parser{namespaces: namespaces(namespace)}

	return p.parseStruct(reflect.ValueOf(cfg).Elem(), "")
}

func envConfigOf(cfg any) (*EnvConfig, error) {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, ErrInvalidConfig
	}

	v = v.Elem()

	for i := range v.NumField() {
		if field := v.Type().Field(i); field.Anonymous && field.Type == envConfigType {
			//nolint:forcetypeassert
			return v.Field(i).Addr().Interface().(*EnvConfig), nil
		}
	}

	return nil, ErrInvalidConfig
}

// namespaces lists the lookup prefixes for namespace, most specific first, ending with "".
func namespaces(namespace string) []string {
	var prefixes []string

	if namespace != "" {
		parts := strings.Split(namespace, "_")
		for i := len(parts); i > 0; i-- {
			prefixes = append(prefixes, strings.Join(parts[:i], "_")+"_")
		}
	}

	return append(prefixes, "")
}

type parser struct {
	namespaces []string
}

func (p parser) parseStruct(v reflect.Value, prefix string) error {
	for i := range v.NumField() {
		field := v.Type().Field(i)

		if !field.IsExported() || field.Type == envConfigType {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := p.parseStruct(v.Field(i), prefix+field.Tag.Get("envPrefix")); err != nil {
				return err
			}

			continue
		}

		name, ok := field.Tag.Lookup("env")
		if !ok || name == "" {
			continue
		}

		name = prefix + name

		raw, ok := p.lookup(name)
		if !ok {
			if raw, ok = field.Tag.Lookup("default"); !ok {
				return fmt.Errorf("%w: %s", ErrVarNotSet, name)
			}
		}

		if err := set(v.Field(i), raw); err != nil {
			return fmt.Errorf("parse field %s (%s): %w", field.Name, name, err)
		}
	}

	return nil
}

func (p parser) lookup(name string) (string, bool) {
	for _, ns := range p.namespaces {
		if value, ok := os.LookupEnv(ns + name); ok {
			return value, true
		}
	}

	return "", false
}

func set(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		field.SetInt(int64(d))

		return nil
	}

	//nolint:exhaustive
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid bool: %w", err)
		}

		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int: %w", err)
		}

		field.SetInt(n)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedVarType, field.Kind())
	}

	return nil
}
