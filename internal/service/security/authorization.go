// Package security holds the authorization engine and the principal and
// grant services around it.
package security

import (
	"fmt"
	"strings"

	"genbi/internal/domain"
)

// Authorize decides whether a grant covers every resource a statement
// touches. It is a pure function over its inputs: no I/O, no clock, no
// errors. Checks run database, then table, then column; the first failure
// wins and names exactly one resource. There is no partial authorization.
//
// database is the connection's active database; unqualified tables belong
// to it, so it is checked whenever any table is referenced.
func Authorize(resources *domain.ResourceSet, grant *domain.PermissionGrant, database string) domain.AuthorizationDecision {
	if resources == nil {
		return domain.Allow()
	}
	if grant == nil {
		grant = &domain.PermissionGrant{}
	}

	databases := resources.SortedDatabases()
	if database != "" && len(resources.Tables) > 0 && !resources.Databases[database] {
		databases = append([]string{database}, databases...)
	}
	for _, db := range databases {
		if !grant.AllowsDatabase(db) {
			return domain.DenyDatabase(db)
		}
	}

	for _, table := range resources.SortedTables() {
		if !grant.AllowsTable(table) {
			return domain.DenyTable(table)
		}
	}

	for _, qualified := range resources.SortedColumns() {
		table, column, ok := strings.Cut(qualified, ".")
		if !ok {
			table, column = "", qualified
		}
		if !grant.AllowsColumn(table, column) {
			return domain.DenyColumn(table, column)
		}
	}

	return domain.Allow()
}

// AuthorizeFor applies the admin bypass before delegating to Authorize.
func AuthorizeFor(principal *domain.Principal, resources *domain.ResourceSet, grant *domain.PermissionGrant, database string) domain.AuthorizationDecision {
	if principal != nil && principal.IsAdmin {
		return domain.Allow()
	}
	return Authorize(resources, grant, database)
}

// Describe renders a decision for logs and audit rows.
func Describe(d domain.AuthorizationDecision) string {
	if d.Allowed {
		return "allowed"
	}
	return fmt.Sprintf("denied: %s (%s)", d.DeniedResource, d.ReasonCode)
}
