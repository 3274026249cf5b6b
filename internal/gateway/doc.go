// Package gateway wires the profile-service components into running servers.
//
// # Overview
//
// Gateway owns the account store, the token codec, the request gate, and the
// account and authentication services. It serves the JSON HTTP API and, when
// server.grpc_addr is set, a gRPC server exposing grpc.health.v1.
//
// # HTTP API
//
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check (pings the database)
//   - POST /api/auth/login-by-email - Exchange a registered email for a token
//   - GET /api/auth/me - Describe the authenticated caller
//   - POST /api/accounts - Register an account (public)
//   - GET /api/accounts - List accounts
//   - GET /api/accounts/{id} - Fetch one account
//   - PUT /api/accounts/{id} - Replace an account
//   - DELETE /api/accounts/{id} - Remove an account
//
// Account routes other than registration follow auth.policy: with
// "authenticated" they answer 401 unless the gate attached an identity, with
// "permit_all" they are open.
//
// # Handler Chain
//
//	access log -> CORS -> request gate -> mux -> route guard -> handler
//
// The gate never rejects a request on its own. Rejection happens in the route
// guard, so public routes see the same context as protected ones.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled, then shuts down
//
// Tests use NewWithStore with store.NewMockStore and drive Handler directly.
package gateway
