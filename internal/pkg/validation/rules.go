// Package validation registers the project's custom binding tags with the
// validator gin uses.
package validation

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Course codes are upper case segments joined by dashes, e.g. WLD-101
	CourseCodePattern = `^[A-Za-z0-9]{2,10}(-[A-Za-z0-9]{1,10}){0,3}$`

	// Phone numbers allow an optional leading + and common separators
	PhonePattern = `^\+?[0-9][0-9 ()\-]{5,30}$`

	// Student numbers as issued at registration
	StudentNumberPattern = `^STU-\d{4}-\d{6}$`
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	CourseCode    *regexp.Regexp
	Phone         *regexp.Regexp
	StudentNumber *regexp.Regexp
}{
	CourseCode:    regexp.MustCompile(CourseCodePattern),
	Phone:         regexp.MustCompile(PhonePattern),
	StudentNumber: regexp.MustCompile(StudentNumberPattern),
}

// Custom tags
const (
	TagCourseCode    = "course_code"
	TagPhone         = "phone"
	TagStudentNumber = "student_number"
)

func patternRule(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// RegisterRules adds the custom tags to v
func RegisterRules(v *validator.Validate) error {
	rules := map[string]*regexp.Regexp{
		TagCourseCode:    CompiledPatterns.CourseCode,
		TagPhone:         CompiledPatterns.Phone,
		TagStudentNumber: CompiledPatterns.StudentNumber,
	}
	for tag, re := range rules {
		if err := v.RegisterValidation(tag, patternRule(re)); err != nil {
			return fmt.Errorf("failed to register %s rule: %w", tag, err)
		}
	}
	return nil
}

var registerOnce sync.Once

// Register installs the custom tags on gin's default validator. Safe to call
// more than once.
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
			return
		}
		err = RegisterRules(v)
	})
	return err
}
