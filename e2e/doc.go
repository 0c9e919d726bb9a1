// Package e2e runs the suite against a live ServeRest deployment. Targets
// come from API_URL and FRONT_URL (defaults: the public deployment), or a
// config file named by E2E_CONFIG. UI tests need a local Chrome.
//
//	go test -tags e2e ./e2e/...
package e2e
