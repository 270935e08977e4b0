package source

import (
	"trackgeo/internal/importer"
	"trackgeo/internal/interchange"

	"go.uber.org/zap"
)

// Application constructs the geometry of a job from a document. The import
// path is taken from the workspace: without a virtual definition interface the
// document is authored natively.
type Application struct {
	doc    *Document
	logger *zap.Logger
}

// NewApplication returns the construction callbacks for doc.
func NewApplication(doc *Document, logger *zap.Logger) *Application {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Application{doc: doc, logger: logger.With(zap.String("document", doc.Name))}
}

// Document returns the replayed document.
func (a *Application) Document() *Document { return a.doc }

func (a *Application) ConstructGeometry(ws *importer.Workspace) error {
	switch mc := ws.MC.(type) {
	case nil:
		a.logger.Debug("building native geometry", zap.Int("volumes", len(a.doc.Volumes)))
		if err := a.doc.BuildNative(ws.Graph); err != nil {
			return err
		}
		if a.doc.TrackingMedia {
			return a.doc.FillTrackingMedia(ws.TrackingMedia)
		}
		return nil
	case *interchange.Builder:
		a.logger.Debug("defining interchange geometry", zap.Int("volumes", len(a.doc.Volumes)))
		mgr := mc.Manager()
		err := a.doc.Define(mc, func(name string) error {
			_, err := mgr.AddAssembly(name)
			return err
		})
		if err != nil {
			return err
		}
		if a.doc.Top != "" {
			return mgr.SetTopVolume(a.doc.Top)
		}
		return nil
	default:
		a.logger.Debug("defining legacy geometry", zap.Int("volumes", len(a.doc.Volumes)))
		return a.doc.Define(mc, nil)
	}
}

// MisalignGeometry is a no-op: documents carry aligned geometry.
func (a *Application) MisalignGeometry(*importer.Workspace) error { return nil }

func (a *Application) ConstructOpGeometry(*importer.Workspace) error { return nil }
