// Package model holds the entities managed by the worker and the table
// mapping for each of them.
//
//   - Person: versioned, listed by name, table t_personne
//   - Locality: database-generated key, table t_localite
//   - Department: database-generated key, table t_departement
package model
