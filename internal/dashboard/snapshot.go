package dashboard

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sld-insights/internal/loader"
	"github.com/sells-group/sld-insights/internal/model"
	"github.com/sells-group/sld-insights/internal/store"
)

// SaveSnapshot builds the bundle for sel, stores it with its state averages
// and ranked top metros, and returns the stored snapshot with the state rows.
func SaveSnapshot(ctx context.Context, st store.Store, ds *Dataset, sel loader.Selection, opts Options) (*model.Snapshot, []model.StateRow, error) {
	b := Build(ds, sel, opts)

	payload, err := json.Marshal(b)
	if err != nil {
		return nil, nil, eris.Wrap(err, "dashboard: marshal bundle")
	}

	snap, err := st.CreateSnapshot(ctx, sel.Metros, payload)
	if err != nil {
		return nil, nil, eris.Wrap(err, "dashboard: create snapshot")
	}

	rows := b.StateRows()
	if err := st.SaveStateAverages(ctx, snap.ID, rows); err != nil {
		return nil, nil, eris.Wrapf(err, "dashboard: save state averages for %s", snap.ID)
	}
	if err := st.SaveMetroStats(ctx, snap.ID, b.TopMetros); err != nil {
		return nil, nil, eris.Wrapf(err, "dashboard: save top metros for %s", snap.ID)
	}

	zap.L().Info("saved dashboard snapshot",
		zap.String("id", snap.ID),
		zap.Strings("metros", sel.Metros),
		zap.Int("states", len(rows)),
		zap.Int("top_metros", len(b.TopMetros)),
	)
	return snap, rows, nil
}
