package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "whisper-stt/internal/app/errors"
)

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(validationErrs))
			for _, fe := range validationErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
			}
			return apperrors.Mark(apperrors.ErrInvalidConfig, errors.New(strings.Join(msgs, "; ")))
		}
		return apperrors.Mark(apperrors.ErrInvalidConfig, err)
	}

	if strings.HasPrefix(cfg.Models.Source, "s3://") && cfg.MinIO.Endpoint == "" {
		return apperrors.Mark(apperrors.ErrInvalidConfig, errors.New("s3 model source requires MINIO_ENDPOINT"))
	}
	return nil
}
