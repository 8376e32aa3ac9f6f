package listview

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
)

func waitPending(t *testing.T, d *Dialog) PendingPrompt {
	t.Helper()
	var p PendingPrompt
	require.Eventually(t, func() bool {
		var ok bool
		p, ok = d.Pending()
		return ok
	}, time.Second, 5*time.Millisecond)
	return p
}

func TestDialogAnswer(t *testing.T) {
	d := NewDialog(time.Minute)
	changed := d.Changed()
	result := make(chan bool, 1)
	go func() {
		ok, err := d.Confirm(context.Background(), liststate.Prompt{Title: "Confirm Delete", Message: "Sure?"})
		assert.NoError(t, err)
		result <- ok
	}()

	<-changed
	p := waitPending(t, d)
	assert.Equal(t, "Confirm Delete", p.Title)
	assert.ErrorIs(t, d.Answer("other", true), ErrNoPrompt)
	require.NoError(t, d.Answer(p.ID, true))
	assert.True(t, <-result)

	require.Eventually(t, func() bool {
		_, ok := d.Pending()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestDialogTimeoutDeclines(t *testing.T) {
	d := NewDialog(20 * time.Millisecond)
	ok, err := d.Confirm(context.Background(), liststate.Prompt{Title: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
	_, pending := d.Pending()
	assert.False(t, pending)
}

func TestDialogSinglePrompt(t *testing.T) {
	d := NewDialog(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := d.Confirm(ctx, liststate.Prompt{Title: "first"})
		errs <- err
	}()
	waitPending(t, d)

	_, err := d.Confirm(context.Background(), liststate.Prompt{Title: "second"})
	assert.ErrorIs(t, err, liststate.ErrBulkInProgress)

	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)
}
