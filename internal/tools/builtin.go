package tools

// builtin is a Tool described entirely by its fields.
type builtin struct {
	name        string
	kind        Kind
	description string
	commands    []string
}

func (b builtin) Name() string        { return b.name }
func (b builtin) Kind() Kind          { return b.kind }
func (b builtin) Description() string { return b.description }
func (b builtin) Commands() []string  { return b.commands }

func init() {
	MustRegister(builtin{
		name:        "file-encryptor",
		kind:        KindFile,
		description: "Encrypt files with a password or a key pair, optionally split into verified chunks",
		commands:    []string{"encrypt", "decrypt", "verify"},
	})
	MustRegister(builtin{
		name:        "container-inspector",
		kind:        KindFile,
		description: "Show the structure of a container header without any keys",
		commands:    []string{"inspect"},
	})
	MustRegister(builtin{
		name:        "file-signer",
		kind:        KindFile,
		description: "Sign files with a key pair and check signatures against the keyring",
		commands:    []string{"sign", "verify-signature"},
	})
	MustRegister(builtin{
		name:        "secure-text",
		kind:        KindText,
		description: "Encrypt short text into copy-pasteable SECURE-TEXT blocks",
		commands:    []string{"text"},
	})
	MustRegister(builtin{
		name:        "key-manager",
		kind:        KindKeys,
		description: "Manage the encrypted keyring of key pairs and contacts",
		commands:    []string{"keys"},
	})
	MustRegister(builtin{
		name:        "audit-log",
		kind:        KindAudit,
		description: "Review the local log of operations",
		commands:    []string{"log"},
	})
}
