// Package policy provides role and ownership based authorization evaluation.
//
// # Overview
//
// The Engine evaluates whether a caller may perform an action on a resource
// using immutable role/permission tables loaded once at startup. Decisions are
// pure functions of the caller-supplied SecurityContext and the configured
// tables: the engine holds no mutable state and is safe for unsynchronized
// concurrent use.
//
// # Default deny
//
// Absence of a matching permission is a negative result, never an error.
// Evaluation is total: any well-formed input yields true or false.
//
// # Ownership override
//
// When a check supplies the resource owner's id and it equals the caller's
// user id, access is granted irrespective of the role tables.
//
// # Usage Example
//
//	engine, err := policy.NewEngine(policy.DefaultConfig())
//	if err != nil {
//		log.Fatal(err) // misconfigured tables are fatal at startup
//	}
//
//	allowed := engine.HasPermission(ctx, "tasks", "write",
//		policy.WithResourceOwner(task.OwnerID))
//
// # Related Packages
//
//   - pkg/middleware: HTTP enforcement of permission checks
//   - pkg/monitor: access-denied decisions are reported as security events
package policy
