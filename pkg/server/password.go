package server

import (
	"github.com/alexedwards/argon2id"
)

// Match passwords only live as long as the match, so lighter parameters than
// the argon2id defaults are used.
var passwordArgon2id = &argon2id.Params{
	Memory:      16 * 1024,
	Iterations:  2,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

func hashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, passwordArgon2id)
}

func checkPassword(password string, hash string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	return err == nil && match
}
