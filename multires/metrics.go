package multires

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	facesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "multires",
		Name:      "faces_evaluated_total",
		Help:      "Faces processed by the displacement evaluator, by operation.",
	}, []string{"op"})

	levelTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "multires",
		Name:      "level_transitions_total",
		Help:      "Level changes applied to multires objects, by operation.",
	}, []string{"op"})

	legacyConversions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multires",
		Name:      "legacy_conversions_total",
		Help:      "Legacy multires hierarchies converted to displacement grids.",
	})

	singularBases = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multires",
		Name:      "singular_bases_total",
		Help:      "Grid samples whose tangent basis could not be inverted.",
	})
)
