// Package audience implements saved-audience management.
//
// A saved audience is a named set of targeting criteria and markets plus the
// most recent estimate produced for it. The service sizes audiences through
// the estimation engine on create and on refresh. It depends on the
// repository interface defined in this package and never imports from api/.
//
// The Postgres implementation lives in repository/postgres/.
package audience
