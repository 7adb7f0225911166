package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-proctor/internal/model"
)

// ProfileRepository reads user profiles from the user directory.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// GetByUserID retrieves a profile by its user ID.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*model.StudentProfile, error) {
	p := &model.StudentProfile{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, username, role, department, batch
		 FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Username, &p.Role, &p.Department, &p.Batch)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListStudentsByDepartment returns every student profile of a department.
func (r *ProfileRepository) ListStudentsByDepartment(ctx context.Context, department string) ([]model.StudentProfile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, username, role, department, batch
		 FROM user_profiles
		 WHERE role = $1 AND department = $2
		 ORDER BY user_id`, model.RoleStudent, department,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []model.StudentProfile
	for rows.Next() {
		var p model.StudentProfile
		if err := rows.Scan(&p.UserID, &p.Username, &p.Role, &p.Department, &p.Batch); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Create inserts a profile. Used by the demo seeder.
func (r *ProfileRepository) Create(ctx context.Context, p *model.StudentProfile) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO user_profiles (username, role, department, batch)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username) DO UPDATE
		 SET role = EXCLUDED.role, department = EXCLUDED.department, batch = EXCLUDED.batch
		 RETURNING user_id`,
		p.Username, p.Role, p.Department, p.Batch,
	).Scan(&p.UserID)
}
