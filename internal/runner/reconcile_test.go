package runner

import (
	"testing"

	"signal_trader/internal/models"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	const inst = "EUR_USD"
	cases := []struct {
		name      string
		dir       models.Direction
		positions []models.Position
		want      Relation
	}{
		{"no positions", models.DirectionBuy, nil, RelationNone},
		{"buy vs short", models.DirectionBuy, []models.Position{{Instrument: inst, SignedUnits: -500}}, RelationOpposite},
		{"sell vs short", models.DirectionSell, []models.Position{{Instrument: inst, SignedUnits: -300}}, RelationSame},
		{"buy vs long", models.DirectionBuy, []models.Position{{Instrument: inst, SignedUnits: 1000}}, RelationSame},
		{"sell vs long", models.DirectionSell, []models.Position{{Instrument: inst, SignedUnits: 1000}}, RelationOpposite},
		{"other instrument ignored", models.DirectionBuy, []models.Position{{Instrument: "GBP_USD", SignedUnits: -100}}, RelationNone},
		{"zero units ignored", models.DirectionBuy, []models.Position{{Instrument: inst, SignedUnits: 0}}, RelationNone},
		{"hedged account buy", models.DirectionBuy, []models.Position{
			{Instrument: inst, SignedUnits: -500},
			{Instrument: inst, SignedUnits: 300},
		}, RelationOpposite},
		{"hedged account sell", models.DirectionSell, []models.Position{
			{Instrument: inst, SignedUnits: 300},
			{Instrument: inst, SignedUnits: -500},
		}, RelationOpposite},
		{"several longs", models.DirectionBuy, []models.Position{
			{Instrument: inst, SignedUnits: 100},
			{Instrument: inst, SignedUnits: 200},
			{Instrument: "GBP_USD", SignedUnits: -50},
		}, RelationSame},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.dir, tc.positions, inst)
			require.Equal(t, tc.want, got)
			require.Equal(t, got, Classify(tc.dir, tc.positions, inst))
		})
	}
}

func TestRelationString(t *testing.T) {
	require.Equal(t, "none", RelationNone.String())
	require.Equal(t, "same", RelationSame.String())
	require.Equal(t, "opposite", RelationOpposite.String())
}
