package workflows

import (
	"github.com/PolarWolf314/kete/internal/armor"
	"github.com/PolarWolf314/kete/internal/audit"
	"github.com/PolarWolf314/kete/internal/container"
	"github.com/PolarWolf314/kete/internal/keyring"
)

// TextOptions configures EncryptText.
type TextOptions struct {
	Password     string
	RecipientKey []byte
	Recipient    string
}

// EncryptText turns plaintext into a SECURE-TEXT block, password mode when
// Password is set and key pair mode otherwise.
func EncryptText(plaintext []byte, opts TextOptions) (string, error) {
	entry := audit.LogWithUser("text.encrypt")
	entry.Recipient = opts.Recipient

	var (
		block string
		err   error
	)
	if opts.Password != "" {
		entry.Mode = container.WrapSymmetric.String()
		block, err = armor.EncryptWithPassword(plaintext, opts.Password)
	} else {
		entry.Mode = container.WrapHybrid.String()
		block, err = armor.EncryptForRecipient(plaintext, opts.RecipientKey)
	}
	if err != nil {
		entry.Error = err.Error()
	}
	audit.Log(entry)
	return block, err
}

// DecryptText opens a SECURE-TEXT block. Password blocks ask password;
// key pair blocks try every key pair in ring, unlocked ones first, asking
// passphrase for locked ones.
func DecryptText(text string, password func() (string, error), ring *keyring.Keyring, passphrase keyring.PassphraseFunc) ([]byte, error) {
	entry := audit.LogWithUser("text.decrypt")
	if mode, err := armor.Detect(text); err == nil {
		entry.Mode = mode.String()
	}

	var unwrap armor.UnwrapFunc
	if ring != nil {
		unwrap = func(wrapped []byte) ([]byte, error) {
			return ring.UnwrapSessionKey(wrapped, passphrase)
		}
	}
	plaintext, err := armor.Decrypt(text, password, unwrap)
	if err != nil {
		entry.Error = err.Error()
	}
	audit.Log(entry)
	return plaintext, err
}
