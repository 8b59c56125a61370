package dto

type ConvertRequest struct {
	Quality string `validate:"omitempty,oneof=basic formatted"`
	Files   int    `validate:"min=1"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}
