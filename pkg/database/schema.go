package database

import (
	"context"
	"fmt"
)

// EnsureSchema creates the database schema if it does not exist yet
func (db *DB) EnsureSchema(ctx context.Context) error {
	db.logger.Info("Ensuring database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createUsersTable,
		createHealthRecordsTable,
		createMedicalHistoryTable,
		createMedicationsTable,
		createVerificationLogsTable,
		createAnalyticsTable,
		createAuditLogsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createUsersIndexes,
		createHealthRecordsIndexes,
		createMedicalHistoryIndexes,
		createMedicationsIndexes,
		createVerificationLogsIndexes,
		createAnalyticsIndexes,
		createAuditLogsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema ready")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	google_id VARCHAR(255) UNIQUE,
	email VARCHAR(255) UNIQUE NOT NULL,
	name VARCHAR(255) NOT NULL,
	profile_picture VARCHAR(500),
	role VARCHAR(50) NOT NULL DEFAULT 'patient',
	phone VARCHAR(20),
	date_of_birth DATE,
	gender VARCHAR(20),
	address TEXT,
	emergency_contact JSONB,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_login TIMESTAMP
);`

const createUsersIndexes = `
CREATE INDEX IF NOT EXISTS idx_users_google_id ON users(google_id);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`

const createHealthRecordsTable = `
CREATE TABLE IF NOT EXISTS health_records (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	record_type VARCHAR(100) NOT NULL,
	title VARCHAR(255) NOT NULL,
	description TEXT,
	icd11_code VARCHAR(50),
	icd11_title VARCHAR(255),
	diagnosis TEXT,
	symptoms TEXT[],
	medications JSONB,
	test_results JSONB,
	attachments JSONB,
	doctor_name VARCHAR(255),
	hospital_name VARCHAR(255),
	visit_date DATE,
	severity VARCHAR(50) NOT NULL DEFAULT 'mild',
	status VARCHAR(50) NOT NULL DEFAULT 'active',
	verification_status VARCHAR(50) NOT NULL DEFAULT 'pending',
	verification_data JSONB,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const createHealthRecordsIndexes = `
CREATE INDEX IF NOT EXISTS idx_health_records_user_id ON health_records(user_id);
CREATE INDEX IF NOT EXISTS idx_health_records_type ON health_records(record_type);
CREATE INDEX IF NOT EXISTS idx_health_records_icd11 ON health_records(icd11_code);
CREATE INDEX IF NOT EXISTS idx_health_records_status ON health_records(status);`

const createMedicalHistoryTable = `
CREATE TABLE IF NOT EXISTS medical_history (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	condition_name VARCHAR(255) NOT NULL,
	icd11_code VARCHAR(50),
	diagnosed_date DATE,
	status VARCHAR(50) NOT NULL DEFAULT 'active',
	notes TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const createMedicalHistoryIndexes = `
CREATE INDEX IF NOT EXISTS idx_medical_history_user_id ON medical_history(user_id);`

const createMedicationsTable = `
CREATE TABLE IF NOT EXISTS medications (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	medication_name VARCHAR(255) NOT NULL,
	dosage VARCHAR(100),
	frequency VARCHAR(100),
	prescribed_by VARCHAR(255),
	start_date DATE,
	end_date DATE,
	status VARCHAR(50) NOT NULL DEFAULT 'active',
	notes TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const createMedicationsIndexes = `
CREATE INDEX IF NOT EXISTS idx_medications_user_id ON medications(user_id);`

const createVerificationLogsTable = `
CREATE TABLE IF NOT EXISTS verification_logs (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	record_id UUID NOT NULL REFERENCES health_records(id) ON DELETE CASCADE,
	verification_type VARCHAR(50) NOT NULL,
	status VARCHAR(50) NOT NULL,
	verification_data JSONB,
	verified_by VARCHAR(255),
	verified_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	notes TEXT
);`

const createVerificationLogsIndexes = `
CREATE INDEX IF NOT EXISTS idx_verification_logs_record_id ON verification_logs(record_id);`

const createAnalyticsTable = `
CREATE TABLE IF NOT EXISTS analytics (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	metric_type VARCHAR(100) NOT NULL,
	metric_value JSONB NOT NULL,
	date_recorded DATE NOT NULL DEFAULT CURRENT_DATE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const createAnalyticsIndexes = `
CREATE INDEX IF NOT EXISTS idx_analytics_user_id ON analytics(user_id);
CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics(metric_type);
CREATE INDEX IF NOT EXISTS idx_analytics_date ON analytics(date_recorded);`

const createAuditLogsTable = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	action VARCHAR(100) NOT NULL,
	user_id UUID REFERENCES users(id),
	resource_type VARCHAR(50) NOT NULL,
	resource_id VARCHAR(100),
	details JSONB,
	timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const createAuditLogsIndexes = `
CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);`
