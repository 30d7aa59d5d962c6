package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/artpar/devportal/internal/core/domain"
)

// Custom attributes carried on every user in the pool.
const (
	attrVendors = "custom:vendors" // comma-separated vendor ids
	attrIsAdmin = "custom:isAdmin" // "1" for portal admins
	attrProfile = "profile"        // vendor requested at signup
)

// cognitoAPI is the subset of the Cognito IDP client the provider uses.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	ForgotPassword(ctx context.Context, params *cognitoidentityprovider.ForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, params *cognitoidentityprovider.ConfirmForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error)
	GetUser(ctx context.Context, params *cognitoidentityprovider.GetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GetUserOutput, error)
	AdminGetUser(ctx context.Context, params *cognitoidentityprovider.AdminGetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, params *cognitoidentityprovider.AdminUpdateUserAttributesInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminUpdateUserAttributesOutput, error)
	AdminEnableUser(ctx context.Context, params *cognitoidentityprovider.AdminEnableUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminEnableUserOutput, error)
	ListUsers(ctx context.Context, params *cognitoidentityprovider.ListUsersInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ListUsersOutput, error)
}

// CognitoProvider implements Provider on an AWS Cognito user pool.
type CognitoProvider struct {
	api      cognitoAPI
	poolID   string
	clientID string
}

// NewCognitoProvider creates a provider for the given user pool.
func NewCognitoProvider(cfg aws.Config, poolID, clientID string) *CognitoProvider {
	return &CognitoProvider{
		api:      cognitoidentityprovider.NewFromConfig(cfg),
		poolID:   poolID,
		clientID: clientID,
	}
}

func (p *CognitoProvider) Login(ctx context.Context, email, password string) (*Tokens, error) {
	out, err := p.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, translateCognitoErr(err)
	}
	if out.AuthenticationResult == nil {
		return nil, domain.NewAuthError("authentication challenge not supported")
	}

	res := out.AuthenticationResult
	return &Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

func (p *CognitoProvider) SignUp(ctx context.Context, user NewUser) error {
	_, err := p.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(user.Email),
		Password: aws.String(user.Password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(user.Email)},
			{Name: aws.String("name"), Value: aws.String(user.Name)},
			// Membership is granted later; the requested vendor is kept
			// for the admin to see.
			{Name: aws.String(attrProfile), Value: aws.String(user.VendorID)},
			{Name: aws.String(attrVendors), Value: aws.String("")},
		},
	})
	if err != nil {
		return translateCognitoErr(err)
	}
	return nil
}

func (p *CognitoProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := p.api.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return translateCognitoErr(err)
	}
	return nil
}

func (p *CognitoProvider) ForgotPassword(ctx context.Context, email string) error {
	_, err := p.api.ForgotPassword(ctx, &cognitoidentityprovider.ForgotPasswordInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(email),
	})
	if err != nil {
		return translateCognitoErr(err)
	}
	return nil
}

func (p *CognitoProvider) ConfirmForgotPassword(ctx context.Context, email, password, code string) error {
	_, err := p.api.ConfirmForgotPassword(ctx, &cognitoidentityprovider.ConfirmForgotPasswordInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(email),
		Password:         aws.String(password),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return translateCognitoErr(err)
	}
	return nil
}

func (p *CognitoProvider) GetUser(ctx context.Context, accessToken string) (*domain.User, error) {
	out, err := p.api.GetUser(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return nil, translateCognitoErr(err)
	}
	return userFromAttributes(out.UserAttributes), nil
}

func (p *CognitoProvider) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := p.api.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(p.poolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return nil, translateCognitoErr(err)
	}
	return userFromAttributes(out.UserAttributes), nil
}

func (p *CognitoProvider) AddUserToVendor(ctx context.Context, email, vendorID string) error {
	user, err := p.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.HasVendor(vendorID) {
		return nil
	}
	return p.setVendors(ctx, email, append(user.Vendors, vendorID))
}

func (p *CognitoProvider) RemoveUserFromVendor(ctx context.Context, email, vendorID string) error {
	user, err := p.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.HasVendor(vendorID) {
		return nil
	}
	vendors := make([]string, 0, len(user.Vendors))
	for _, v := range user.Vendors {
		if v != vendorID {
			vendors = append(vendors, v)
		}
	}
	return p.setVendors(ctx, email, vendors)
}

func (p *CognitoProvider) setVendors(ctx context.Context, email string, vendors []string) error {
	_, err := p.api.AdminUpdateUserAttributes(ctx, &cognitoidentityprovider.AdminUpdateUserAttributesInput{
		UserPoolId: aws.String(p.poolID),
		Username:   aws.String(email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String(attrVendors), Value: aws.String(strings.Join(vendors, ","))},
		},
	})
	if err != nil {
		return translateCognitoErr(err)
	}
	return nil
}

func (p *CognitoProvider) MakeUserAdmin(ctx context.Context, email string) error {
	_, err := p.api.AdminUpdateUserAttributes(ctx, &cognitoidentityprovider.AdminUpdateUserAttributesInput{
		UserPoolId: aws.String(p.poolID),
		Username:   aws.String(email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String(attrIsAdmin), Value: aws.String("1")},
		},
	})
	if err != nil {
		return translateCognitoErr(err)
	}
	return nil
}

func (p *CognitoProvider) EnableUser(ctx context.Context, email string) error {
	_, err := p.api.AdminEnableUser(ctx, &cognitoidentityprovider.AdminEnableUserInput{
		UserPoolId: aws.String(p.poolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return translateCognitoErr(err)
	}
	return nil
}

func (p *CognitoProvider) ListUsers(ctx context.Context, filter string) ([]domain.User, error) {
	input := &cognitoidentityprovider.ListUsersInput{
		UserPoolId: aws.String(p.poolID),
	}
	if filter != "" {
		input.Filter = aws.String(fmt.Sprintf("email ^= %q", filter))
	}

	var users []domain.User
	for {
		out, err := p.api.ListUsers(ctx, input)
		if err != nil {
			return nil, translateCognitoErr(err)
		}
		for _, u := range out.Users {
			users = append(users, *userFromAttributes(u.Attributes))
		}
		if out.PaginationToken == nil {
			return users, nil
		}
		input.PaginationToken = out.PaginationToken
	}
}

func (p *CognitoProvider) ListUsersForVendor(ctx context.Context, vendorID string) ([]domain.User, error) {
	// The vendors attribute is not filterable server side.
	all, err := p.ListUsers(ctx, "")
	if err != nil {
		return nil, err
	}
	var users []domain.User
	for _, u := range all {
		if u.HasVendor(vendorID) {
			users = append(users, u)
		}
	}
	return users, nil
}

// userFromAttributes builds the user profile from pool attributes.
func userFromAttributes(attrs []types.AttributeType) *domain.User {
	user := &domain.User{}
	for _, attr := range attrs {
		switch aws.ToString(attr.Name) {
		case "email":
			user.Email = aws.ToString(attr.Value)
		case "name":
			user.Name = aws.ToString(attr.Value)
		case attrVendors:
			user.Vendors = splitVendors(aws.ToString(attr.Value))
		case attrIsAdmin:
			user.IsAdmin = aws.ToString(attr.Value) == "1"
		}
	}
	return user
}

func splitVendors(value string) []string {
	var vendors []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			vendors = append(vendors, v)
		}
	}
	return vendors
}

// translateCognitoErr maps Cognito API errors onto the portal error taxonomy.
func translateCognitoErr(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return domain.NewUpstreamError("identity provider request failed", err)
	}

	switch apiErr.ErrorCode() {
	case "NotAuthorizedException":
		return domain.NewAuthError("%s", apiErr.ErrorMessage())
	case "UserNotConfirmedException":
		return domain.NewAuthError("account is not confirmed")
	case "UserNotFoundException":
		return domain.NewNotFoundError("user not found")
	case "UsernameExistsException":
		return domain.NewConflictError("user already exists")
	case "AliasExistsException":
		return domain.NewConflictError("%s", apiErr.ErrorMessage())
	case "InvalidPasswordException", "InvalidParameterException",
		"CodeMismatchException", "ExpiredCodeException":
		return domain.NewValidationError("%s", apiErr.ErrorMessage())
	default:
		return domain.NewUpstreamError("identity provider request failed", err)
	}
}
