// Package password provides Argon2id password hashing for Warden.
//
// Design goals:
//   - PHC-encoded hashes ($argon2id$v=19$...) safe to store and compare later.
//   - Strict decoding with anti-DoS parameter bounds during Verify, so an
//     attacker-controlled hash string cannot force pathological resource usage.
//   - Constant-time comparison; malformed hashes verify as false, never panic.
//
// Cost parameters default to values tuned for interactive logins and can be
// overridden via WARDEN_ARGON2_* environment variables.
package password
