package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/reforest-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureInterventionIndexes adds postgres-only partial indexes and checks that
// AutoMigrate cannot express.
func EnsureInterventionIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_intervention_project_status", `
			CREATE INDEX IF NOT EXISTS idx_intervention_project_status
			ON intervention (project_id, status)
			WHERE deleted_at IS NULL;`},
		{"idx_intervention_species_live", `
			CREATE INDEX IF NOT EXISTS idx_intervention_species_live
			ON intervention_species (intervention_id)
			WHERE deleted_at IS NULL;`},
		{"idx_tree_species_live", `
			CREATE INDEX IF NOT EXISTS idx_tree_species_live
			ON tree (intervention_species_id)
			WHERE deleted_at IS NULL;`},
		{"chk_intervention_total_tree_count", `
			DO $$ BEGIN
				ALTER TABLE intervention ADD CONSTRAINT chk_intervention_total_tree_count CHECK (total_tree_count >= 0);
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`},
		{"chk_intervention_species_count", `
			DO $$ BEGIN
				ALTER TABLE intervention_species ADD CONSTRAINT chk_intervention_species_count CHECK (species_count >= 0);
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...", "driver", s.driver)
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.driver != DriverPostgres {
		return nil
	}
	if err := EnsureInterventionIndexes(s.db); err != nil {
		s.log.Error("Intervention index migration failed", "error", err)
		return err
	}
	return nil
}
