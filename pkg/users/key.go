package users

import "strings"

// DefaultKeyPrefix namespaces every key written by the registry.
const DefaultKeyPrefix = "wingo"

// Keys builds the Redis keys used by the registry.
type Keys struct {
	Prefix string
}

// Users returns the hash holding all user records.
// Format: <prefix>:users
func (k Keys) Users() string {
	return k.join("users")
}

func (k Keys) join(parts ...string) string {
	prefix := strings.Trim(k.Prefix, ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}
