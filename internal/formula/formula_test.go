package formula_test

import (
	"errors"
	"sync"
	"testing"

	"skins-service/internal/formula"

	"github.com/shopspring/decimal"
)

func players(n int64) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{formula.PlayersVar: decimal.NewFromInt(n)}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		expr string
		n    int64
		want string
	}{
		{"2", 6, "2"},
		{"roundPlayers", 12, "12"},
		{"roundPlayers * 100", 6, "600"},
		{"1 + 2 * 3", 6, "7"},
		{"(1 + 2) * 3", 6, "9"},
		{"(roundPlayers - 4) / 2", 10, "3"},
		{"-roundPlayers + 10", 6, "4"},
		{"--3", 6, "3"},
		{"+3 - -2", 6, "5"},
		{"0.5 * roundPlayers", 7, "3.5"},
		{".25 * 4", 6, "1"},
		{"roundPlayers * 20 * 0.1 / 18", 9, "1"},
		{"  roundPlayers\t*\n2 ", 8, "16"},
		{"10 - 4 - 3", 6, "3"},
		{"24 / 4 / 2", 6, "3"},
	}

	for _, tc := range cases {
		got, err := formula.Evaluate(tc.expr, players(tc.n))
		if err != nil {
			t.Fatalf("evaluate %q: unexpected error %v", tc.expr, err)
		}
		want := decimal.RequireFromString(tc.want)
		if !got.Equal(want) {
			t.Fatalf("evaluate %q with %d players: expected %s, got %s", tc.expr, tc.n, want, got)
		}
	}
}

func TestEvaluateIsDecimalExact(t *testing.T) {
	got, err := formula.Evaluate("0.1 + 0.2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("expected exactly 0.3, got %s", got)
	}
}

func TestEvaluateMalformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"1 +",
		"(1 + 2",
		"1 + 2)",
		"2 ** 3",
		"roundPlayers 2",
		"1.2.3",
		"3x",
		"max(1, 2)",
		"1 % 2",
		".",
	}
	for _, expr := range cases {
		_, err := formula.Evaluate(expr, players(6))
		if !errors.Is(err, formula.ErrMalformed) {
			t.Fatalf("expected malformed error for %q, got %v", expr, err)
		}
	}
}

func TestEvaluateMalformedReportsOffset(t *testing.T) {
	_, err := formula.Compile("1 + $")
	var fe *formula.Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *formula.Error, got %T", err)
	}
	if fe.Pos != 4 {
		t.Fatalf("expected offset 4, got %d", fe.Pos)
	}
}

func TestEvaluateUnknownVariable(t *testing.T) {
	_, err := formula.Evaluate("players * 2", players(6))
	if !errors.Is(err, formula.ErrUnknownVariable) {
		t.Fatalf("expected unknown variable error, got %v", err)
	}
	var fe *formula.Error
	if !errors.As(err, &fe) || fe.Name != "players" {
		t.Fatalf("expected error naming 'players', got %v", err)
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	cases := []string{"1 / 0", "roundPlayers / (roundPlayers - 6)", "5 / (2 - 2.0)"}
	for _, expr := range cases {
		_, err := formula.Evaluate(expr, players(6))
		if !errors.Is(err, formula.ErrNonFinite) {
			t.Fatalf("expected non-finite error for %q, got %v", expr, err)
		}
	}
}

func TestVariables(t *testing.T) {
	expr, err := formula.Compile("roundPlayers * rate + roundPlayers - base")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	vars := expr.Variables()
	want := []string{"base", "rate", "roundPlayers"}
	if len(vars) != len(want) {
		t.Fatalf("expected %v, got %v", want, vars)
	}
	for i := range want {
		if vars[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, vars)
		}
	}
}

func TestCompiledExpressionConcurrentEval(t *testing.T) {
	expr := formula.MustCompile("roundPlayers * 3 / 2")

	var wg sync.WaitGroup
	errs := make(chan error, 25)
	for n := 6; n <= 30; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := expr.EvaluateForPlayers(n)
			if err != nil {
				errs <- err
				return
			}
			want := decimal.NewFromInt(int64(n * 3)).Div(decimal.NewFromInt(2))
			if !got.Equal(want) {
				errs <- errors.New("unexpected result " + got.String())
			}
		}(n)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent eval failed: %v", err)
	}
}
