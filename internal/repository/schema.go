package repository

// Constraint and index names used to tell the two unique violations apart.
const (
	SurveyTable = "survey_responses"

	PostgresUserConstraint   = "survey_responses_line_user_id_key"
	PostgresCouponConstraint = "survey_responses_coupon_code_key"

	MongoUserIndex   = "uniq_line_user_id"
	MongoCouponIndex = "uniq_coupon_code"
)

// PostgresSchema creates the survey table and its constraints.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS survey_responses (
	id                   UUID PRIMARY KEY,
	line_user_id         TEXT NOT NULL,
	age_range            TEXT NOT NULL,
	gender               TEXT NOT NULL,
	discovery_channels   TEXT[] NOT NULL,
	discovery_other      TEXT NOT NULL DEFAULT '',
	price_range          TEXT NOT NULL,
	brand_name           TEXT NOT NULL,
	coupon_code          CHAR(12) NOT NULL,
	notification_sent_at TIMESTAMPTZ,
	submitted_at         TIMESTAMPTZ NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT survey_responses_line_user_id_key UNIQUE (line_user_id),
	CONSTRAINT survey_responses_coupon_code_key UNIQUE (coupon_code)
);

CREATE INDEX IF NOT EXISTS idx_survey_responses_submitted_at
	ON survey_responses (submitted_at DESC);

CREATE INDEX IF NOT EXISTS idx_survey_responses_pending_notification
	ON survey_responses (created_at)
	WHERE notification_sent_at IS NULL;
`

// PostgresDropSchema removes the survey table.
const PostgresDropSchema = `DROP TABLE IF EXISTS survey_responses;`
