package db

// Migrate creates every table the history needs. It is safe to run on an
// existing database.
func (db *DB) Migrate() error {
	if err := createAttemptsTable(db); err != nil {
		return err
	}
	return nil
}
