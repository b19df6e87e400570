package qdrant

var TieAtCut = tieAtCut
