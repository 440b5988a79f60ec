package main

import (
	"fmt"
	"io"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/pkg/auth"
)

// issueTokens 为一局的每个座位签发凭证
func issueTokens(w io.Writer, bc *conf.Bootstrap, match string) error {
	if bc.Auth == nil || bc.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if match == "" {
		id, err := gonanoid.New(12)
		if err != nil {
			return err
		}
		match = id
	}
	fmt.Fprintf(w, "match=%s\n", match)
	for seat := int32(0); seat < bc.Match.Players; seat++ {
		peer, err := gonanoid.New(8)
		if err != nil {
			return err
		}
		token, err := auth.Issue(bc.Auth.Secret, bc.Auth.Issuer, bc.Auth.TokenTTL.Duration, peer, match, seat)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "seat=%d peer=%s token=%s\n", seat, peer, token)
	}
	return nil
}
