package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job_type ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON job TYPE string DEFAULT 'queued';
    DEFINE FIELD IF NOT EXISTS media_asset_id ON job TYPE record<media_asset>;
    DEFINE FIELD IF NOT EXISTS attempt ON job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS error_detail ON job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON job TYPE datetime DEFAULT time::now();
    -- started_at lets an operator spot jobs stranded in 'running' by a crash;
    -- the worker itself never reclaims them.
    DEFINE FIELD IF NOT EXISTS started_at ON job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS completed_at ON job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS job_status ON job FIELDS status;

    -- ==========================================================================
    -- MEDIA_ASSET TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS media_asset SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS profile_id ON media_asset TYPE string;
    -- file_name doubles as the object-store key
    DEFINE FIELD IF NOT EXISTS file_name ON media_asset TYPE string;
    DEFINE FIELD IF NOT EXISTS mime_type ON media_asset TYPE string;
    DEFINE FIELD IF NOT EXISTS bytes ON media_asset TYPE int;
    DEFINE FIELD IF NOT EXISTS duration_seconds ON media_asset TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS created ON media_asset TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS media_asset_profile ON media_asset FIELDS profile_id;

    -- ==========================================================================
    -- MEMORY_UNIT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS memory_unit SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS profile_id ON memory_unit TYPE string;
    DEFINE FIELD IF NOT EXISTS media_asset_id ON memory_unit TYPE record<media_asset>;
    DEFINE FIELD IF NOT EXISTS start_time_ms ON memory_unit TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS end_time_ms ON memory_unit TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS title ON memory_unit TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON memory_unit TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON memory_unit TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS event_type ON memory_unit TYPE string;
    DEFINE FIELD IF NOT EXISTS places ON memory_unit TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS dates ON memory_unit TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS keywords ON memory_unit TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS created ON memory_unit TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS memory_unit_asset ON memory_unit FIELDS media_asset_id;
    DEFINE INDEX IF NOT EXISTS memory_unit_profile ON memory_unit FIELDS profile_id;
    DEFINE INDEX IF NOT EXISTS memory_unit_event_type ON memory_unit FIELDS event_type;
    DEFINE INDEX IF NOT EXISTS memory_unit_keywords ON memory_unit FIELDS keywords;

    -- ==========================================================================
    -- CITATION TABLE
    -- ==========================================================================
    -- At most one citation per memory unit, enforced by an existence check
    -- before insert rather than a uniqueness constraint.
    DEFINE TABLE IF NOT EXISTS citation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS memory_unit_id ON citation TYPE record<memory_unit>;
    DEFINE FIELD IF NOT EXISTS mime_type ON citation TYPE string;
    DEFINE FIELD IF NOT EXISTS start_time_ms ON citation TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS end_time_ms ON citation TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS evidence_text ON citation TYPE string;
    DEFINE FIELD IF NOT EXISTS created ON citation TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS citation_unit ON citation FIELDS memory_unit_id;
`
