package sql

// Schema создаёт таблицы журнала, если их ещё нет.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	id           UUID PRIMARY KEY,
	ts           TIMESTAMPTZ NOT NULL,
	instrument   TEXT NOT NULL,
	direction    SMALLINT NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	signed_units BIGINT NOT NULL,
	price        DOUBLE PRECISION NOT NULL,
	take_profit  DOUBLE PRECISION NOT NULL,
	stop_loss    DOUBLE PRECISION NOT NULL,
	order_id     TEXT NOT NULL DEFAULT '',
	indicators   JSONB
);
CREATE INDEX IF NOT EXISTS trades_ts_idx ON trades (ts);

CREATE TABLE IF NOT EXISTS skipped_trades (
	id             UUID PRIMARY KEY,
	ts             TIMESTAMPTZ NOT NULL,
	instrument     TEXT NOT NULL,
	direction      SMALLINT,
	confidence     DOUBLE PRECISION,
	reason_skipped TEXT NOT NULL,
	indicators     JSONB
);

CREATE TABLE IF NOT EXISTS closed_positions (
	id           UUID PRIMARY KEY,
	ts           TIMESTAMPTZ NOT NULL,
	instrument   TEXT NOT NULL,
	closed_units BIGINT NOT NULL,
	realized_pl  DOUBLE PRECISION NOT NULL
);
`
