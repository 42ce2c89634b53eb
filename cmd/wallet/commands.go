package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/walletapp/wallet-core/internal/barcode"
	"github.com/walletapp/wallet-core/internal/domain"
	"github.com/walletapp/wallet-core/internal/errors"
	"github.com/walletapp/wallet-core/internal/service"
)

const usage = `usage: wallet [flags] <command> [args]

commands:
  list [-favorites] [-most-used N]
  show <id>
  add [-format F] [-color C] [-brand ID] [-favorite] <name> <barcode>
  favorite <id> <true|false>
  use <id>
  delete <id>
  count
  infer <value>`

// run executes one command against svc and writes JSON to out.
func run(ctx context.Context, svc *service.CardService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.Validation(usage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "infer":
		return runInfer(rest, out)
	case "list":
		return runList(ctx, svc, rest, out)
	case "show":
		id, err := oneArg(cmd, rest)
		if err != nil {
			return err
		}
		card, err := svc.GetCard(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(out, card)
	case "add":
		return runAdd(ctx, svc, rest, out)
	case "favorite":
		if len(rest) != 2 {
			return errors.Validation("favorite needs <id> <true|false>")
		}
		favorite, err := strconv.ParseBool(rest[1])
		if err != nil {
			return errors.Validationf("favorite: %q is not a boolean", rest[1])
		}
		card, err := svc.SetFavorite(ctx, rest[0], favorite)
		if err != nil {
			return err
		}
		return writeJSON(out, card)
	case "use":
		id, err := oneArg(cmd, rest)
		if err != nil {
			return err
		}
		card, err := svc.RecordUse(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(out, card)
	case "delete":
		id, err := oneArg(cmd, rest)
		if err != nil {
			return err
		}
		if err := svc.DeleteCard(ctx, id); err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"deleted": id})
	case "count":
		n, err := svc.CountCards(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]int{"count": n})
	default:
		return errors.Validationf("unknown command %q\n%s", cmd, usage)
	}
}

func runInfer(args []string, out io.Writer) error {
	value, err := oneArg("infer", args)
	if err != nil {
		return err
	}
	format := barcode.InferFormat(value)
	return writeJSON(out, map[string]string{
		"format":      format.String(),
		"description": barcode.Description(format),
	})
}

func runList(ctx context.Context, svc *service.CardService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	favorites := fs.Bool("favorites", false, "only favorite cards")
	mostUsed := fs.Int("most-used", 0, "top N cards by usage")
	if err := fs.Parse(args); err != nil {
		return errors.Validationf("list: %v", err)
	}

	var (
		cards []*domain.LoyaltyCard
		err   error
	)
	switch {
	case *mostUsed != 0:
		cards, err = svc.MostUsedCards(ctx, *mostUsed)
	case *favorites:
		cards, err = svc.FavoriteCards(ctx)
	default:
		cards, err = svc.ListCards(ctx)
	}
	if err != nil {
		return err
	}
	return writeJSON(out, cards)
}

func runAdd(ctx context.Context, svc *service.CardService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", "", "barcode format (inferred when empty)")
	color := fs.String("color", "", "card color (default grey)")
	brand := fs.String("brand", "", "catalogue brand id")
	favorite := fs.Bool("favorite", false, "mark as favorite")
	if err := fs.Parse(args); err != nil {
		return errors.Validationf("add: %v", err)
	}
	if fs.NArg() != 2 {
		return errors.Validation("add needs <name> <barcode>")
	}

	in := service.NewCardInput{
		Name:          fs.Arg(0),
		Barcode:       fs.Arg(1),
		BarcodeFormat: domain.BarcodeFormat(*format),
		Color:         domain.CardColor(*color),
		IsFavorite:    *favorite,
	}
	if *brand != "" {
		in.BrandID = brand
	}

	card, err := svc.AddCard(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(out, card)
}

func oneArg(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.Validationf("%s needs exactly one argument", cmd)
	}
	return args[0], nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
