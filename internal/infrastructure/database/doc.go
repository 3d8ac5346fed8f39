// Package database provides the SQLite connection used by the datapoint
// gateway to persist group-address bindings and last-seen values.
//
// The connection is opened in WAL mode with a busy timeout, and the database
// file is restricted to 0600. Schema changes are plain SQL files passed in
// as an fs.FS and applied with Migrate:
//
//	db, err := database.Open(database.Config{
//	    Path:       cfg.Database.Path,
//	    WALMode:    cfg.Database.WALMode,
//	    Migrations: migrations.FS,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive-only: new columns must be nullable or carry a
// DEFAULT, and each .up.sql has a matching .down.sql.
package database
