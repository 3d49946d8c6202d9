package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"resumectl/internal/errors"
	"resumectl/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile reads a whole file, refusing files larger than maxSize when
// maxSize is positive.
func (fp *FileProcessor) ReadFile(filename string, maxSize int64) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	var reader io.Reader = file
	if maxSize > 0 {
		reader = io.LimitReader(file, maxSize+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	if maxSize > 0 && int64(len(content)) > maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File %s exceeds the %s limit", filename, utils.FormatFileSize(maxSize)), nil)
	}

	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, content, 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ReadResumePDF validates and reads a resume for upload. The file must be a
// PDF with an extractable text layer.
func (fp *FileProcessor) ReadResumePDF(filename string, maxSize int64) ([]byte, *utils.PDFInfo, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return nil, nil, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if !utils.IsPDFFile(filename) {
		fp.logger.Warn("Resume does not have a .pdf extension", "filename", filename)
	}

	data, err := fp.ReadFile(filename, maxSize)
	if err != nil {
		return nil, nil, err
	}

	info, err := utils.InspectPDF(data)
	if err != nil {
		return nil, nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s is not a usable resume PDF: %v", filepath.Base(filename), err), err)
	}

	fp.logger.Debug("Resume PDF inspected",
		"filename", filename,
		"size", utils.FormatFileSize(int64(len(data))),
		"pages", info.Pages,
		"text_chars", info.TextChars)
	return data, info, nil
}

// ReadJobDescription returns text as-is, or the contents of the file when
// text starts with '@' ("@-" reads stdin).
func (fp *FileProcessor) ReadJobDescription(text string, stdin io.Reader) (string, error) {
	if !strings.HasPrefix(text, "@") {
		return text, nil
	}

	filename := strings.TrimPrefix(text, "@")
	if filename == "-" {
		content, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read job description from stdin", err)
		}
		return string(content), nil
	}

	if err := utils.ValidateInputFile(filename); err != nil {
		return "", errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if !utils.IsTextFile(filename) {
		fp.logger.Warn("Job description may not be a text file", "filename", filename)
	}
	content, err := fp.ReadFile(filename, 0)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
