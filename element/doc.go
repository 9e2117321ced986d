// Package element implements elements and the Runtime that creates them.
//
// An element type is described by a Descriptor, normally supplied by a
// registration function in the elements tree. The Runtime keeps the
// registered descriptors, instantiates elements from them and tracks live
// elements through weak references, so a Runtime never keeps an element
// alive on its own.
//
// Element types implement only Descriptor and Instance. Everything else is
// opt-in through capability interfaces checked at runtime:
//
//	DefaultsProvider        descriptor fills default settings
//	TypePropertiesProvider  descriptor describes settings without an instance
//	Updater                 instance accepts new settings
//	PropertiesProvider      instance describes its settings
//	PadRequester            instance creates pads on demand
//	Producer                instance produces buffers on a core-owned task
//	Activator               instance reacts to pad activation
//	Starter                 instance acquires resources on Start
//	Saver, Loader           instance persists private state
//
// Basic usage:
//
//	rt := element.NewRuntime(element.WithLogger(logger))
//	rt.RegisterType(counterDescriptor)
//	src, err := rt.Instantiate("counter_source", "numbers", nil)
//	if err != nil {
//		return err
//	}
//	defer src.Release()
//
// Producers run on a Task owned by the element. Each iteration calls
// Produce, pushes the buffer out of every linked source pad and folds the
// results with pad.CombineFlows: OK continues, ERROR is logged and the loop
// continues, NOT_LINKED and FLUSHING stop the loop, and EOS forwards an EOS
// event downstream before stopping.
package element
