package index

// Reader is the query side of the index used by the read-only meeting
// surfaces. Sync runs and the watcher write through *DB directly.
type Reader interface {
	FindByGranolaID(dir, id string) (string, error)
	ListMeetings(limit, offset int, person string) ([]NoteRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]string, error)
}

var _ Reader = (*DB)(nil)
