package user

import "hypercase/internal/domain/user"

type registerInput struct {
	Body user.RegisterRequest
}

type registerOutput struct {
	Body user.RegisterResponse
}

type loginInput struct {
	Body user.Credentials
}

type loginOutput struct {
	Body user.Session
}
