package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Job is a job posting published by an employer account.
type Job struct {
	ID          int64           `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Description *string         `json:"description,omitempty" db:"description"`
	Location    *string         `json:"location,omitempty" db:"location"`
	Level       *string         `json:"level,omitempty" db:"level"`
	WorkType    *string         `json:"work_type,omitempty" db:"work_type"`
	Salary      *float64        `json:"salary,omitempty" db:"salary"`
	Remote      bool            `json:"remote" db:"remote"`
	Benefits    *string         `json:"benefits,omitempty" db:"benefits"`
	Skills      JSONArray       `json:"skills,omitempty" db:"skills"`
	EmployerID  int64           `json:"employer_id" db:"employer_id"`
	Embedding   pgvector.Vector `json:"-" db:"embedding"`
	PostedAt    time.Time       `json:"posted_at" db:"posted_at"`
}

// User is a candidate or employer account.
type User struct {
	ID         int64     `json:"id" db:"id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Role       *string   `json:"role,omitempty" db:"role"`
	Location   *string   `json:"location,omitempty" db:"location"`
	Skills     *string   `json:"skills,omitempty" db:"skills"`
	OpenToWork bool      `json:"open_to_work" db:"open_to_work"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SubscriptionPlan is a paid plan offered to employers.
type SubscriptionPlan struct {
	ID           int64   `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	Description  *string `json:"description,omitempty" db:"description"`
	Price        float64 `json:"price" db:"price"`
	DurationDays int     `json:"duration_days" db:"duration_days"`
	Active       bool    `json:"active" db:"active"`
}

// Company is an employer's public company record.
type Company struct {
	ID            int64   `json:"id" db:"id"`
	Name          string  `json:"name" db:"name"`
	Industry      *string `json:"industry,omitempty" db:"industry"`
	Location      *string `json:"location,omitempty" db:"location"`
	Website       *string `json:"website,omitempty" db:"website"`
	EmployeeCount *int    `json:"employee_count,omitempty" db:"employee_count"`
	Description   *string `json:"description,omitempty" db:"description"`
}

// EmployerReview is a review a candidate left for a company.
type EmployerReview struct {
	ID          int64     `json:"id" db:"id"`
	CompanyID   int64     `json:"company_id" db:"company_id"`
	CompanyName *string   `json:"company_name,omitempty" db:"company_name"`
	ReviewerID  int64     `json:"reviewer_id" db:"reviewer_id"`
	Rating      float64   `json:"rating" db:"rating"`
	Comment     *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Application is a candidate's application to a job posting.
type Application struct {
	ID             int64     `json:"id" db:"id"`
	JobID          int64     `json:"job_id" db:"job_id"`
	JobTitle       *string   `json:"job_title,omitempty" db:"job_title"`
	ApplicantID    int64     `json:"applicant_id" db:"applicant_id"`
	ApplicantName  *string   `json:"applicant_name,omitempty" db:"applicant_name"`
	Status         string    `json:"status" db:"status"`
	ExpectedSalary *float64  `json:"expected_salary,omitempty" db:"expected_salary"`
	CoverLetter    *string   `json:"cover_letter,omitempty" db:"cover_letter"`
	AppliedAt      time.Time `json:"applied_at" db:"applied_at"`
}

// EmbeddingItem is one job embedding in a batch update.
type EmbeddingItem struct {
	JobID     int64     `json:"job_id" binding:"required"`
	Embedding []float32 `json:"embedding" binding:"required"`
}

// EmbeddingBatchRequest is a batch embedding update request.
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingBatchResponse reports per-batch success and failures.
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// JSONArray represents a JSON array column.
type JSONArray []string

// Value implements driver.Valuer.
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}
