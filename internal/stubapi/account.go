package stubapi

import (
	"crypto/subtle"
	"strconv"

	"github.com/dmitrijs2005/smartaccess/internal/common"
	"github.com/dmitrijs2005/smartaccess/internal/cryptox"
)

type account struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Bio       string
	Verified  bool

	salt         []byte
	passwordKey  []byte
	statusChecks int
}

func (a *account) setPassword(password string) {
	a.salt = common.GenerateRandByteArray(cryptox.SaltSize)
	a.passwordKey = cryptox.DeriveKey([]byte(password), a.salt)
}

func (a *account) checkPassword(password string) bool {
	candidate := cryptox.DeriveKey([]byte(password), a.salt)
	return subtle.ConstantTimeCompare(candidate, a.passwordKey) == 1
}

// view renders the account the way the backend does. The envelope status
// shape reports isVerified as a string.
func (a *account) view(verifiedAsString bool) map[string]any {
	var verified any = a.Verified
	if verifiedAsString {
		verified = strconv.FormatBool(a.Verified)
	}
	return map[string]any{
		"id":         a.ID,
		"email":      a.Email,
		"firstName":  a.FirstName,
		"last_name":  a.LastName,
		"phone":      a.Phone,
		"bio":        a.Bio,
		"isVerified": verified,
	}
}
