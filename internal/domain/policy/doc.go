// Package policy decides whether an inbound command request may reach the backend.
//
// The package holds the process-wide allow-lists and the single-pass validator
// that checks a request against them. Allow-lists are built once at startup and
// never mutated, so a *Validator is safe for concurrent use without locking.
//
// Checks (in order, first failure wins):
//   - Origin: exact match or "allowed." prefix (or label match in strict mode)
//   - Body: must be valid JSON
//   - Command: must be an allow-listed command name
//   - URL: URL-opening commands must target an HTTPS URL on an allowed domain
//
// Example Usage:
//
//	lists := policy.DefaultAllowLists()
//	v := policy.NewValidator(lists)
//	if res := v.Validate(body, origin); !res.Valid() {
//		log.Printf("rejected: %s", res.Reason)
//	}
package policy
