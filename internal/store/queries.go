package store

// query is a named SQL statement. $n placeholders are understood by both
// lib/pq and modernc.org/sqlite.
type query struct {
	ID    string
	Query string
}

var (
	queryCreateTable = query{
		ID: "RRQ-00001",
		Query: "CREATE TABLE IF NOT EXISTS RUN_RESULT (" +
			"RUN_ID VARCHAR(36) PRIMARY KEY, " +
			"WORKFLOW_TYPE VARCHAR(64) NOT NULL, " +
			"STATUS VARCHAR(16) NOT NULL, " +
			"STEPS INTEGER NOT NULL, " +
			"CREATED_AT BIGINT NOT NULL, " +
			"PAYLOAD TEXT NOT NULL)",
	}

	queryCreateIndex = query{
		ID:    "RRQ-00002",
		Query: "CREATE INDEX IF NOT EXISTS IDX_RUN_RESULT_CREATED_AT ON RUN_RESULT (CREATED_AT)",
	}

	queryInsertResult = query{
		ID: "RRQ-00003",
		Query: "INSERT INTO RUN_RESULT (RUN_ID, WORKFLOW_TYPE, STATUS, STEPS, CREATED_AT, PAYLOAD) " +
			"VALUES ($1, $2, $3, $4, $5, $6)",
	}

	queryGetResult = query{
		ID: "RRQ-00004",
		Query: "SELECT RUN_ID, WORKFLOW_TYPE, STATUS, STEPS, CREATED_AT, PAYLOAD " +
			"FROM RUN_RESULT WHERE RUN_ID = $1",
	}

	queryListResults = query{
		ID: "RRQ-00005",
		Query: "SELECT RUN_ID, WORKFLOW_TYPE, STATUS, STEPS, CREATED_AT " +
			"FROM RUN_RESULT ORDER BY CREATED_AT DESC, RUN_ID DESC LIMIT $1",
	}

	queryExistsResult = query{
		ID:    "RRQ-00006",
		Query: "SELECT COUNT(*) FROM RUN_RESULT WHERE RUN_ID = $1",
	}
)
