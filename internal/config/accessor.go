package config

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// GetByPath returns the value at a dot path such as "general.adminChannel".
// A numeric segment indexes into a list: "sonos.devices.0".
func GetByPath(cfg *Config, path string) (any, error) {
	v, err := lookup(cfg, path)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// SetByPath parses value according to the type of the field at path.
// List fields take a comma-separated string. Sections cannot be set whole.
func SetByPath(cfg *Config, path, value string) error {
	v, err := lookup(cfg, path)
	if err != nil {
		return err
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", path, value)
		}
		v.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %q is not true or false", path, value)
		}
		v.SetBool(b)
	case reflect.Slice:
		if v.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%s: unsupported list type %s", path, v.Type())
		}
		v.Set(reflect.ValueOf(splitList(value)).Convert(v.Type()))
	case reflect.Struct:
		return fmt.Errorf("%s is a section, set one of its keys", path)
	default:
		return fmt.Errorf("%s: unsupported type %s", path, v.Type())
	}
	return nil
}

// ListPaths returns every leaf path with its current value. Lists are leaves.
func ListPaths(cfg *Config) map[string]any {
	result := make(map[string]any)
	collectLeaves("", reflect.ValueOf(cfg).Elem(), result)
	return result
}

func collectLeaves(prefix string, v reflect.Value, result map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		path := jsonName(t.Field(i))
		if prefix != "" {
			path = prefix + "." + path
		}
		if f := v.Field(i); f.Kind() == reflect.Struct {
			collectLeaves(path, f, result)
		} else {
			result[path] = f.Interface()
		}
	}
}

func lookup(cfg *Config, path string) (reflect.Value, error) {
	if path == "" {
		return reflect.Value{}, fmt.Errorf("empty path")
	}
	v := reflect.ValueOf(cfg).Elem()
	for _, key := range strings.Split(path, ".") {
		switch v.Kind() {
		case reflect.Struct:
			next, ok := fieldByJSONName(v, key)
			if !ok {
				return reflect.Value{}, fmt.Errorf("key not found: %s", path)
			}
			v = next
		case reflect.Slice:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= v.Len() {
				return reflect.Value{}, fmt.Errorf("invalid list index %q in %s", key, path)
			}
			v = v.Index(idx)
		default:
			return reflect.Value{}, fmt.Errorf("cannot descend into %s at %q", v.Type(), key)
		}
	}
	return v, nil
}

func fieldByJSONName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if jsonName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

// Sanitize returns a copy of the config with tokens and secrets masked.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	c.Sonos.Devices = slices.Clone(cfg.Sonos.Devices)
	c.Moderation.Blacklist = slices.Clone(cfg.Moderation.Blacklist)

	for _, s := range []*string{
		&c.Spotify.ClientSecret,
		&c.Channels.Slack.BotToken,
		&c.Channels.Slack.AppToken,
		&c.Channels.Discord.Token,
		&c.Channels.Telegram.Token,
	} {
		if *s != "" {
			*s = maskString(*s)
		}
	}
	return &c
}

// maskString keeps the first and last four characters.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
