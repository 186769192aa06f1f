// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL connections (or sqlite
// for tests and single-node setups) based on the application's configuration.
//
// # Connect
//
// The generic Connect function establishes a connection to the database. The
// rest of the application works against the returned *gorm.DB and is agnostic
// to the driver in use.
//
// # Schema Inspection
//
// The package includes tools to inspect the database schema. The gauge store
// creates one history table per station lazily; GetTableColumns lets callers
// verify that an existing table matches the expected layout before appending.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "Master_Locations")
package database
