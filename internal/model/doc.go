// Package model defines the documentation graph: Node, Task and Library.
//
// Nodes own their members through slices. Every other relationship (parent, superclass,
// adopted protocols, the class a category extends) is a NodeID resolved through the
// Library that contains the node. A Library is built once and treated as read-only;
// stages that change the graph (filtering, identity assignment) work on a Clone.
package model
