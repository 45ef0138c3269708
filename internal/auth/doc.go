// Package auth provides JWT authentication for the admin API.
//
// JWTVerifier signs and verifies HS256 tokens carrying a principal id in
// the "sub" claim. The signing secret must be at least MinSecretLength
// bytes; NewJWTVerifier rejects anything shorter with ErrWeakSecret.
//
//	verifier, err := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate(principalID, time.Hour)
//	principalID, err := verifier.Verify(token)
//
// This package has no notion of principals, capabilities, or registration
// modes: the admin API treats a verified token as proof of operator
// access and nothing more.
package auth
