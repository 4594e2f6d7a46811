package user

import (
	"fmt"
	"strconv"
)

// String returns field as text the way Postgres' ->> operator would.
func (d ProviderData) String(field string) string {
	v, ok := d[field]
	if !ok || v == nil {
		return ""
	}

	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Profile is what an external identity provider reports about a user.
type Profile struct {
	Provider string
	// IdentifierField names the ProviderData key that uniquely identifies
	// the account at the provider.
	IdentifierField string
	Username        string
	Email           string
	FirstName       string
	LastName        string
	DisplayName     string
	ProviderData    ProviderData
}

func (p Profile) Identifier() string {
	return p.ProviderData.String(p.IdentifierField)
}
