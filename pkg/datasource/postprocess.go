package datasource

import (
	"github.com/harunnryd/calltime/pkg/container"
	"github.com/harunnryd/calltime/pkg/intercept"
)

// PostProcessor wraps every DataSource component once it is initialized. Each
// wrapper reports under the component's name.
type PostProcessor struct {
	ic *intercept.Interceptor
}

var _ container.PostProcessor = (*PostProcessor)(nil)

func NewPostProcessor(ic *intercept.Interceptor) *PostProcessor {
	if ic == nil {
		ic = intercept.New()
	}
	return &PostProcessor{ic: ic}
}

func (p *PostProcessor) BeforeInit(_ string, obj any) (any, error) {
	return obj, nil
}

func (p *PostProcessor) AfterInit(name string, obj any) (any, error) {
	return Wrap(obj, p.ic.Named(name)), nil
}
