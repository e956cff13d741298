package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/pilab-dev/requesttoken/codec"
	"github.com/pilab-dev/requesttoken/properties"
	"github.com/pilab-dev/requesttoken/wire"
	"github.com/spf13/cobra"
)

func newInspectCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <blob>",
		Short: "Print the field layout of an unprotected base64url request token",
		Long: `Walks the blob field by field and prints each offset. Unlike decode it
keeps going as far as it can and reports where the bytes stop making sense.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := decodeBlob(args[0])
			if err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), b)
		},
	}
}

// inspect prints one row per field. A read failure is printed as the last
// row and returned.
func inspect(out io.Writer, data []byte) (err error) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer func() {
		if ferr := tw.Flush(); err == nil {
			err = ferr
		}
	}()

	r := wire.NewReader(data)
	fmt.Fprintf(tw, "OFFSET\tFIELD\tVALUE\n")

	row := func(off int, field, value string) {
		fmt.Fprintf(tw, "%04d\t%s\t%s\n", off, field, value)
	}
	fail := func(field string, err error) error {
		row(r.Offset(), field, "ERROR: "+err.Error())
		return fmt.Errorf("inspect %s: %w", field, err)
	}

	off := r.Offset()
	version, err := r.Int32()
	if err != nil {
		return fail("version", err)
	}
	row(off, "version", strconv.Itoa(int(version)))
	if version != codec.FormatVersion {
		return fail("version", fmt.Errorf("unsupported format version %d", version))
	}

	for _, field := range []string{"token", "token_secret"} {
		off = r.Offset()
		s, err := r.String()
		if err != nil {
			return fail(field, err)
		}
		row(off, field, strconv.Quote(s))
	}

	off = r.Offset()
	confirmed, err := r.Bool()
	if err != nil {
		return fail("callback_confirmed", err)
	}
	row(off, "callback_confirmed", strconv.FormatBool(confirmed))

	off = r.Offset()
	bagVersion, err := r.Int32()
	if err != nil {
		return fail("properties.version", err)
	}
	row(off, "properties.version", strconv.Itoa(int(bagVersion)))
	if bagVersion != properties.FormatVersion {
		return fail("properties.version", fmt.Errorf("unsupported property bag version %d", bagVersion))
	}

	off = r.Offset()
	count, err := r.Int32()
	if err != nil {
		return fail("properties.count", err)
	}
	row(off, "properties.count", strconv.Itoa(int(count)))
	if count < 0 {
		return fail("properties.count", fmt.Errorf("negative entry count %d", count))
	}

	for i := int32(0); i < count; i++ {
		off = r.Offset()
		k, err := r.String()
		if err != nil {
			return fail(fmt.Sprintf("properties[%d].key", i), err)
		}
		v, err := r.String()
		if err != nil {
			return fail(fmt.Sprintf("properties[%d].value", i), err)
		}
		row(off, fmt.Sprintf("properties[%d]", i), strconv.Quote(k)+" = "+strconv.Quote(v))
	}

	if rest := r.Remaining(); rest > 0 {
		row(r.Offset(), "trailing", fmt.Sprintf("%d bytes (ignored)", rest))
	}
	return nil
}
