package cmd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pilab-dev/requesttoken/domain"
	serrors "github.com/pilab-dev/requesttoken/errors"
	"github.com/pilab-dev/requesttoken/secureformat"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// tokenFlags are shared by every command that builds a token.
type tokenFlags struct {
	token     string
	secret    string
	confirmed bool
	redirect  string
	props     []string
}

func (f *tokenFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.token, "token", "", "oauth_token value")
	cmd.Flags().StringVar(&f.secret, "secret", "", "oauth_token_secret value")
	cmd.Flags().BoolVar(&f.confirmed, "confirmed", false, "provider confirmed the callback")
	cmd.Flags().StringVar(&f.redirect, "redirect", "", "redirect URI stored under "+domain.RedirectURIKey)
	cmd.Flags().StringArrayVar(&f.props, "prop", nil, "extra property as key=value (repeatable, order is kept)")
	_ = cmd.MarkFlagRequired("token")
}

func (f *tokenFlags) build() (*domain.RequestToken, error) {
	props := domain.NewProperties()
	if f.redirect != "" {
		props.SetRedirectURI(f.redirect)
	}
	for _, kv := range f.props {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%w: property %q is not key=value", serrors.ErrInvalidArgument, kv)
		}
		props.Set(k, v)
	}
	return domain.NewRequestToken(f.token, f.secret, f.confirmed, props), nil
}

func (a *app) secureFormat(purposes []string) (*secureformat.Format[domain.RequestToken], error) {
	key, err := a.cfg.ProtectionKeyBytes()
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, errors.New("protection_key is not configured (set REQTOKEN_PROTECTION_KEY)")
	}
	p, err := secureformat.NewAEADProtector(key, purposes...)
	if err != nil {
		return nil, err
	}
	return secureformat.New[domain.RequestToken](a.codec, p, a.logger), nil
}

func newEncodeCommand(a *app) *cobra.Command {
	var (
		tf       tokenFlags
		protect  bool
		purposes []string
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a request token and print it as base64url",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := tf.build()
			if err != nil {
				return err
			}

			var out string
			if protect {
				f, err := a.secureFormat(purposes)
				if err != nil {
					return err
				}
				if out, err = f.Protect(cmd.Context(), tok); err != nil {
					return err
				}
			} else {
				b, err := a.codec.Encode(tok)
				if err != nil {
					return err
				}
				out = base64.RawURLEncoding.EncodeToString(b)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	tf.register(cmd)
	cmd.Flags().BoolVar(&protect, "protect", false, "seal the blob with the configured protection key")
	cmd.Flags().StringSliceVar(&purposes, "purpose", []string{"request-token"}, "protection purposes")
	return cmd
}

func newDecodeCommand(a *app) *cobra.Command {
	var (
		protected bool
		purposes  []string
	)
	cmd := &cobra.Command{
		Use:   "decode <blob>",
		Short: "Decode a base64url request token and print it as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tok *domain.RequestToken
			if protected {
				f, err := a.secureFormat(purposes)
				if err != nil {
					return err
				}
				if tok, err = f.Unprotect(cmd.Context(), args[0]); err != nil {
					return describeDecodeError(err)
				}
			} else {
				b, err := decodeBlob(args[0])
				if err != nil {
					return err
				}
				if tok, err = a.codec.Decode(b); err != nil {
					return describeDecodeError(err)
				}
			}
			return printToken(cmd.OutOrStdout(), tok)
		},
	}
	cmd.Flags().BoolVar(&protected, "protected", false, "the blob was sealed with --protect")
	cmd.Flags().StringSliceVar(&purposes, "purpose", []string{"request-token"}, "protection purposes")
	return cmd
}

// decodeBlob accepts base64url with or without padding.
func decodeBlob(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(s), "="))
	if err != nil {
		return nil, fmt.Errorf("%w: blob is not base64url: %v", serrors.ErrInvalidArgument, err)
	}
	return b, nil
}

func describeDecodeError(err error) error {
	var derr *serrors.DecodeError
	if errors.As(err, &derr) {
		return fmt.Errorf("decode failed (%s): %w", derr.Reason, err)
	}
	return err
}

// printToken writes the token as YAML, keeping the property order.
func printToken(w io.Writer, t *domain.RequestToken) error {
	props := &yaml.Node{Kind: yaml.MappingNode}
	t.Properties.Range(func(k, v string) bool {
		props.Content = append(props.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v},
		)
		return true
	})

	view := struct {
		Token             string     `yaml:"token"`
		TokenSecret       string     `yaml:"token_secret"`
		CallbackConfirmed bool       `yaml:"callback_confirmed"`
		Properties        *yaml.Node `yaml:"properties"`
	}{t.Token, t.TokenSecret, t.CallbackConfirmed, props}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return err
	}
	return enc.Close()
}
