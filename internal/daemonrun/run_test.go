package daemonrun

import (
	"context"
	"errors"
	"testing"

	"jobtrail/internal/classifier"
	"jobtrail/internal/logging"
)

type closingCompleter struct {
	closed int
	err    error
}

func (c *closingCompleter) Complete(context.Context, string, string) (string, error) {
	return "{}", nil
}

func (c *closingCompleter) Name() string { return "closing" }

func (c *closingCompleter) Close() error {
	c.closed++
	return c.err
}

func TestCloseClassifierReleasesModelClient(t *testing.T) {
	completer := &closingCompleter{}
	closeClassifier(classifier.NewModel(completer, classifier.ModelOptions{}, logging.NewNop()), logging.NewNop())
	if completer.closed != 1 {
		t.Fatalf("expected completer closed once, got %d", completer.closed)
	}
}

func TestCloseClassifierToleratesFailuresAndPlainClassifiers(t *testing.T) {
	completer := &closingCompleter{err: errors.New("boom")}
	closeClassifier(classifier.NewModel(completer, classifier.ModelOptions{}, logging.NewNop()), logging.NewNop())
	if completer.closed != 1 {
		t.Fatalf("expected close attempt, got %d", completer.closed)
	}
	closeClassifier(classifier.NewHeuristic(logging.NewNop()), logging.NewNop())
}
