package tales

import "github.com/aretw0/zpt/pkg/resolve"

// Standard returns a dispatcher with every built-in prefix registered:
// path, local, global, string, not, exists and load.
// A nil resolver uses resolve.Default(); a nil loader makes load: fail at evaluation time.
func Standard(resolver resolve.Resolver, loader TemplateLoader, opts ...DispatcherOption) *Dispatcher {
	if resolver == nil {
		resolver = resolve.Default()
	}
	d := NewDispatcher(opts...)
	paths := NewPathEvaluator(DefaultRoots, resolver)
	d.Register(PrefixPath, paths)
	d.Register(PrefixLocal, NewPathEvaluator(LocalRoots, resolver))
	d.Register(PrefixGlobal, NewPathEvaluator(GlobalRoots, resolver))
	d.Register(PrefixString, NewStringEvaluator(paths))
	d.Register(PrefixNot, NewNotEvaluator(d))
	d.Register(PrefixExists, NewExistsEvaluator(d))
	d.Register(PrefixLoad, NewLoadEvaluator(d, loader))
	return d
}
