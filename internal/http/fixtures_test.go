package http_test

import "github.com/geocoder89/familytree/internal/domain/user"

func userFixture() user.User {
	return user.User{
		Name:     "bob",
		Email:    "bob@x.com",
		Role:     user.RoleUser,
		Photo:    user.DefaultPhoto,
		Provider: user.ProviderLocal,
	}
}
