package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/AnshRaj112/newsdesk-backend/pkg/utils"
	"github.com/go-playground/validator/v10"
)

var roleRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)

// UserInput is the admin create and update payload.
type UserInput struct {
	Email       string   `json:"email" validate:"required,useremail"`
	Password    string   `json:"password,omitempty" validate:"omitempty,strongpassword"`
	Name        string   `json:"name" validate:"required,fullname"`
	DateOfBirth string   `json:"dateOfBirth,omitempty" validate:"omitempty,dob"`
	Phone       string   `json:"phone,omitempty" validate:"omitempty,icephone"`
	Image       string   `json:"image,omitempty" validate:"omitempty,max=2048"`
	Roles       []string `json:"roles,omitempty" validate:"omitempty,dive,role"`
}

// NewUserValidator returns a validator with the user field tags registered.
func NewUserValidator() *validator.Validate {
	v := validator.New()
	for tag, fn := range map[string]validator.Func{
		"useremail":      func(fl validator.FieldLevel) bool { return utils.IsValidEmail(fl.Field().String()) },
		"strongpassword": func(fl validator.FieldLevel) bool { return utils.ValidatePassword(fl.Field().String()) == nil },
		"fullname": func(fl validator.FieldLevel) bool {
			return utils.ValidateSignup(utils.SignupFields{Email: "a@b.is", Password: "Abcdef1", Name: fl.Field().String()}) == nil
		},
		"dob": func(fl validator.FieldLevel) bool {
			_, err := utils.ParseDate(fl.Field().String())
			return err == nil
		},
		"icephone": func(fl validator.FieldLevel) bool { return utils.IsIcelandicPhoneNumber(fl.Field().String()) },
		"role":     func(fl validator.FieldLevel) bool { return roleRegex.MatchString(fl.Field().String()) },
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
	return v
}

// UserAdmin backs the admin user directory and the users CLI.
type UserAdmin struct {
	dir      UserDirectory
	validate *validator.Validate
	timeout  time.Duration
}

func NewUserAdmin(dir UserDirectory, storeTimeout time.Duration) *UserAdmin {
	return &UserAdmin{dir: dir, validate: NewUserValidator(), timeout: storeTimeout}
}

func (a *UserAdmin) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// Validate checks in and returns the first failure as a *ValidationError.
func (a *UserAdmin) Validate(in UserInput, requirePassword bool) error {
	if in.Email == "" || in.Name == "" || (requirePassword && in.Password == "") {
		return NewValidationError("You must provide name, email and password")
	}
	err := a.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return userFieldError(verrs[0], in)
}

func userFieldError(fe validator.FieldError, in UserInput) error {
	switch fe.Field() {
	case "Email":
		return &ValidationError{Field: "email", Message: fmt.Sprintf("%s is not a valid email", in.Email)}
	case "Password":
		return utils.ValidatePassword(in.Password)
	case "Name":
		return &ValidationError{Field: "name", Message: "Name has aleast two 2 names consisting of letters"}
	case "DateOfBirth":
		return &ValidationError{Field: "dateOfBirth", Message: "Date is not in valid format. Try DD.MM.YYYY"}
	case "Phone":
		return &ValidationError{Field: "phone", Message: "Phone number is not a valid Icelandic phone number"}
	case "Image":
		return &ValidationError{Field: "image", Message: "Image url is too long"}
	}
	return &ValidationError{Field: "roles", Message: fmt.Sprintf("%v is not a valid role", fe.Value())}
}

func (a *UserAdmin) List(ctx context.Context, q UserQuery) (models.Page[models.AdminUser], error) {
	ctx, cancel := a.ctx(ctx)
	defer cancel()
	page, err := a.dir.List(ctx, q)
	if err != nil {
		return models.Page[models.AdminUser]{}, err
	}
	return models.MapPage(page, func(u models.User) models.AdminUser { return u.ToAdmin() }), nil
}

func (a *UserAdmin) Get(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := a.ctx(ctx)
	defer cancel()
	return a.dir.FindByID(ctx, id)
}

func (a *UserAdmin) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if err := a.Validate(in, true); err != nil {
		return nil, err
	}
	u := &models.User{}
	if err := applyInput(u, in); err != nil {
		return nil, err
	}

	ctx, cancel := a.ctx(ctx)
	defer cancel()
	if err := a.dir.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update replaces the editable fields of user id. An empty password keeps
// the current one and nil roles keep the current roles.
func (a *UserAdmin) Update(ctx context.Context, id string, in UserInput) (*models.User, error) {
	if err := a.Validate(in, false); err != nil {
		return nil, err
	}
	ctx, cancel := a.ctx(ctx)
	defer cancel()

	u, err := a.dir.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyInput(u, in); err != nil {
		return nil, err
	}
	if err := a.dir.Update(ctx, u); err != nil {
		return nil, err
	}
	return a.dir.FindByID(ctx, id)
}

func (a *UserAdmin) Delete(ctx context.Context, id string) error {
	ctx, cancel := a.ctx(ctx)
	defer cancel()
	return a.dir.Delete(ctx, id)
}

func (a *UserAdmin) GrantRole(ctx context.Context, email, role string) (*models.User, error) {
	return a.changeRoles(ctx, email, role, func(roles []string) []string {
		if slices.Contains(roles, role) {
			return roles
		}
		return append(roles, role)
	})
}

func (a *UserAdmin) RevokeRole(ctx context.Context, email, role string) (*models.User, error) {
	return a.changeRoles(ctx, email, role, func(roles []string) []string {
		return slices.DeleteFunc(roles, func(r string) bool { return r == role })
	})
}

func (a *UserAdmin) changeRoles(ctx context.Context, email, role string, fn func([]string) []string) (*models.User, error) {
	if !roleRegex.MatchString(role) {
		return nil, &ValidationError{Field: "roles", Message: fmt.Sprintf("%s is not a valid role", role)}
	}
	ctx, cancel := a.ctx(ctx)
	defer cancel()

	u, err := a.dir.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return a.dir.SetRoles(ctx, email, fn(slices.Clone(u.Roles)))
}

func applyInput(u *models.User, in UserInput) error {
	u.Name = in.Name
	u.Email = utils.NormalizeEmail(in.Email)
	u.Phone = in.Phone
	u.Image = in.Image
	if in.Roles != nil {
		u.Roles = in.Roles
	}
	u.DateOfBirth = nil
	if in.DateOfBirth != "" {
		dob, err := utils.ParseDate(in.DateOfBirth)
		if err != nil {
			return &ValidationError{Field: "dateOfBirth", Message: "Date is not in valid format. Try DD.MM.YYYY"}
		}
		u.DateOfBirth = &dob
	}
	if in.Password != "" {
		hash, err := utils.HashPassword(in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u.Password = hash
	}
	return nil
}
